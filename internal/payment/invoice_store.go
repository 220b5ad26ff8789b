package payment

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/coinpath-labs/paymentd/internal/utils"
)

// Status is the lifecycle state of a stored invoice.
type Status int

const (
	StatusUnpaid Status = iota
	StatusExpired
	StatusUnknown
	StatusPaid
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusUnpaid:
		return "unpaid"
	case StatusExpired:
		return "expired"
	case StatusUnknown:
		return "unknown"
	case StatusPaid:
		return "paid"
	case StatusError:
		return "error"
	}
	return "invalid"
}

// invoiceRecord is the persisted form of one invoice. The request bytes
// are stored hex-encoded so the snapshot stays a plain JSON document.
type invoiceRecord struct {
	Hex       string  `json:"hex"`
	Requestor string  `json:"requestor"`
	TxID      *string `json:"txid"`
}

// InvoiceStore keeps received payment requests keyed by id and
// snapshots the whole set to a JSON file on every mutation. Snapshots
// are written to a temp file and renamed into place, so a crash mid
// write never leaves a truncated store behind.
type InvoiceStore struct {
	logger *utils.LogsManager

	mutex    sync.Mutex
	path     string
	invoices map[string]*PaymentRequest
}

// NewInvoiceStore opens the store at the configured location and loads
// whatever snapshot is there. A missing or unreadable snapshot starts
// an empty store rather than failing, losing the local invoice list
// must never block payments.
func NewInvoiceStore(cm *utils.ConfigManager, logger *utils.LogsManager) *InvoiceStore {
	name := cm.GetConfigWithDefault("invoices_file", "invoices.json")
	path := name
	if !filepath.IsAbs(name) {
		path = utils.GetAppPaths("").GetDataPath(name)
	}

	st := &InvoiceStore{
		logger:   logger,
		path:     path,
		invoices: make(map[string]*PaymentRequest),
	}
	st.load()
	return st
}

func (st *InvoiceStore) load() {
	data, err := os.ReadFile(st.path)
	if err != nil {
		if !os.IsNotExist(err) {
			st.logger.Warn(fmt.Sprintf("Cannot read invoice store %s: %v", st.path, err), "invoices")
		}
		return
	}

	var records map[string]invoiceRecord
	if err := json.Unmarshal(data, &records); err != nil {
		st.logger.Warn(fmt.Sprintf("Invoice store %s is corrupt, starting empty: %v", st.path, err), "invoices")
		return
	}

	for id, rec := range records {
		raw, err := hex.DecodeString(rec.Hex)
		if err != nil {
			st.logger.Warn(fmt.Sprintf("Skipping invoice %s: %v", id, err), "invoices")
			continue
		}
		pr, err := ParsePaymentRequest(raw)
		if err != nil {
			st.logger.Warn(fmt.Sprintf("Skipping invoice %s: %v", id, err), "invoices")
			continue
		}
		pr.requestor = rec.Requestor
		if rec.TxID != nil {
			pr.tx = *rec.TxID
		}
		st.invoices[id] = pr
	}
	st.logger.Info(fmt.Sprintf("Loaded %d invoices from %s", len(st.invoices), st.path), "invoices")
}

// save must be called with the mutex held.
func (st *InvoiceStore) save() error {
	records := make(map[string]invoiceRecord, len(st.invoices))
	for id, pr := range st.invoices {
		rec := invoiceRecord{
			Hex:       hex.EncodeToString(pr.raw),
			Requestor: pr.Requestor(),
		}
		if pr.tx != "" {
			tx := pr.tx
			rec.TxID = &tx
		}
		records[id] = rec
	}

	data, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorePersist, err)
	}

	dir := filepath.Dir(st.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrStorePersist, err)
	}
	tmp, err := os.CreateTemp(dir, ".invoices-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorePersist, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: %v", ErrStorePersist, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: %v", ErrStorePersist, err)
	}
	if err := os.Rename(tmp.Name(), st.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: %v", ErrStorePersist, err)
	}
	return nil
}

// Add stores a request and returns its id. Adding an id that is already
// present leaves the existing entry untouched.
func (st *InvoiceStore) Add(pr *PaymentRequest) (string, error) {
	st.mutex.Lock()
	defer st.mutex.Unlock()

	id := pr.ID()
	if _, exists := st.invoices[id]; exists {
		st.logger.Debug("Invoice already stored: "+id, "invoices")
		return id, nil
	}
	st.invoices[id] = pr
	return id, st.save()
}

// Get returns the stored request for id.
func (st *InvoiceStore) Get(id string) (*PaymentRequest, bool) {
	st.mutex.Lock()
	defer st.mutex.Unlock()
	pr, ok := st.invoices[id]
	return pr, ok
}

// Remove deletes the invoice and persists the shrunken set.
func (st *InvoiceStore) Remove(id string) error {
	st.mutex.Lock()
	defer st.mutex.Unlock()

	if _, exists := st.invoices[id]; !exists {
		return fmt.Errorf("%w: %s", ErrInvoiceNotFound, id)
	}
	delete(st.invoices, id)
	return st.save()
}

// SetPaid records the transaction that settled the invoice.
func (st *InvoiceStore) SetPaid(id, txid string) error {
	st.mutex.Lock()
	defer st.mutex.Unlock()

	pr, exists := st.invoices[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrInvoiceNotFound, id)
	}
	pr.tx = txid
	return st.save()
}

// GetStatus derives the invoice state. A recorded transaction means
// paid even when the request has since expired.
func (st *InvoiceStore) GetStatus(id string) (Status, error) {
	st.mutex.Lock()
	defer st.mutex.Unlock()

	pr, exists := st.invoices[id]
	if !exists {
		return StatusUnknown, fmt.Errorf("%w: %s", ErrInvoiceNotFound, id)
	}
	switch {
	case pr.tx != "":
		return StatusPaid, nil
	case pr.HasExpired():
		return StatusExpired, nil
	}
	return StatusUnpaid, nil
}

// List returns the stored requests in no particular order.
func (st *InvoiceStore) List() []*PaymentRequest {
	st.mutex.Lock()
	defer st.mutex.Unlock()

	out := make([]*PaymentRequest, 0, len(st.invoices))
	for _, pr := range st.invoices {
		out = append(out, pr)
	}
	return out
}

// Path returns the snapshot location.
func (st *InvoiceStore) Path() string {
	return st.path
}
