package payment

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/coinpath-labs/paymentd/internal/bitcoin"
	"github.com/coinpath-labs/paymentd/internal/utils"
)

func testStore(t *testing.T) (*InvoiceStore, *utils.ConfigManager) {
	t.Helper()
	cm, logger := testLogger(t)
	cm.SetConfig("invoices_file", filepath.Join(t.TempDir(), "invoices.json"))
	return NewInvoiceStore(cm, logger), cm
}

func storedRequest(t *testing.T, fill byte) *PaymentRequest {
	t.Helper()
	pr, err := ParsePaymentRequest(buildRaw(t, RequestParams{Address: testAddress(fill), Amount: 7700, Memo: "stored"}))
	if err != nil {
		t.Fatalf("Failed to parse request: %v", err)
	}
	return pr
}

func TestStoreAddGetRemove(t *testing.T) {
	st, _ := testStore(t)
	pr := storedRequest(t, 0x41)

	id, err := st.Add(pr)
	if err != nil {
		t.Fatalf("Failed to add invoice: %v", err)
	}
	if id != pr.ID() {
		t.Errorf("Add returned %s, expected %s", id, pr.ID())
	}

	got, ok := st.Get(id)
	if !ok {
		t.Fatal("Stored invoice not found")
	}
	if got.Amount() != 7700 {
		t.Errorf("Expected amount 7700, got %d", got.Amount())
	}

	if err := st.Remove(id); err != nil {
		t.Fatalf("Failed to remove invoice: %v", err)
	}
	if _, ok := st.Get(id); ok {
		t.Error("Removed invoice still present")
	}
	if err := st.Remove(id); !errors.Is(err, ErrInvoiceNotFound) {
		t.Errorf("Expected ErrInvoiceNotFound, got %v", err)
	}
}

func TestStoreAddIsIdempotent(t *testing.T) {
	st, _ := testStore(t)
	pr := storedRequest(t, 0x42)

	first, err := st.Add(pr)
	if err != nil {
		t.Fatalf("Failed to add invoice: %v", err)
	}
	second, err := st.Add(pr)
	if err != nil {
		t.Fatalf("Failed to re-add invoice: %v", err)
	}
	if first != second {
		t.Errorf("Re-adding returned different id: %s vs %s", first, second)
	}
	if n := len(st.List()); n != 1 {
		t.Errorf("Expected 1 stored invoice, got %d", n)
	}
}

func TestStoreStatusLifecycle(t *testing.T) {
	st, _ := testStore(t)
	pr := storedRequest(t, 0x43)
	id, err := st.Add(pr)
	if err != nil {
		t.Fatalf("Failed to add invoice: %v", err)
	}

	status, err := st.GetStatus(id)
	if err != nil {
		t.Fatalf("Failed to get status: %v", err)
	}
	if status != StatusUnpaid {
		t.Errorf("Expected unpaid, got %s", status)
	}

	if err := st.SetPaid(id, "feedcafe01"); err != nil {
		t.Fatalf("Failed to mark paid: %v", err)
	}
	status, err = st.GetStatus(id)
	if err != nil {
		t.Fatalf("Failed to get status: %v", err)
	}
	if status != StatusPaid {
		t.Errorf("Expected paid, got %s", status)
	}

	if _, err := st.GetStatus("deadbeef"); !errors.Is(err, ErrInvoiceNotFound) {
		t.Errorf("Expected ErrInvoiceNotFound for unknown id, got %v", err)
	}
	if err := st.SetPaid("deadbeef", "tx"); !errors.Is(err, ErrInvoiceNotFound) {
		t.Errorf("Expected ErrInvoiceNotFound for unknown id, got %v", err)
	}
}

func TestStorePaidOutranksExpired(t *testing.T) {
	st, _ := testStore(t)

	raw := buildRaw(t, RequestParams{
		Address: testAddress(0x44),
		Amount:  100,
		Time:    time.Now().Add(-2 * time.Hour),
		Expiry:  time.Minute,
	})
	pr, err := ParsePaymentRequest(raw)
	if err != nil {
		t.Fatalf("Failed to parse request: %v", err)
	}
	id, err := st.Add(pr)
	if err != nil {
		t.Fatalf("Failed to add invoice: %v", err)
	}

	status, err := st.GetStatus(id)
	if err != nil {
		t.Fatalf("Failed to get status: %v", err)
	}
	if status != StatusExpired {
		t.Errorf("Expected expired, got %s", status)
	}

	if err := st.SetPaid(id, "feedcafe02"); err != nil {
		t.Fatalf("Failed to mark paid: %v", err)
	}
	status, err = st.GetStatus(id)
	if err != nil {
		t.Fatalf("Failed to get status: %v", err)
	}
	if status != StatusPaid {
		t.Errorf("Paid invoice must stay paid after expiry, got %s", status)
	}
}

func TestStoreReopenRestoresState(t *testing.T) {
	cm, logger := testLogger(t)
	cm.SetConfig("invoices_file", filepath.Join(t.TempDir(), "invoices.json"))
	st := NewInvoiceStore(cm, logger)

	// A verified alias request, so the requestor survives the reload too.
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}
	alias := "shop@merchant.example"
	env, err := BuildUnsignedRequest(RequestParams{Address: testAddress(0x45), Amount: 3100})
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	signed, err := ParsePaymentRequest(SignRequestWithAlias(env, alias, key, true))
	if err != nil {
		t.Fatalf("Failed to parse signed request: %v", err)
	}
	resolver := &fakeResolver{address: bitcoin.AddressForKey(key.PubKey(), true, bitcoin.MainNetParams), validated: true}
	if !NewVerifier(nil, logger).Verify(signed, resolver) {
		t.Fatalf("Failed to verify alias request: %s", signed.VerifyStatus())
	}

	plain := storedRequest(t, 0x46)

	signedID, err := st.Add(signed)
	if err != nil {
		t.Fatalf("Failed to add signed invoice: %v", err)
	}
	plainID, err := st.Add(plain)
	if err != nil {
		t.Fatalf("Failed to add plain invoice: %v", err)
	}
	if err := st.SetPaid(plainID, "feedcafe03"); err != nil {
		t.Fatalf("Failed to mark paid: %v", err)
	}

	reopened := NewInvoiceStore(cm, logger)
	if n := len(reopened.List()); n != 2 {
		t.Fatalf("Expected 2 restored invoices, got %d", n)
	}

	restored, ok := reopened.Get(signedID)
	if !ok {
		t.Fatal("Signed invoice missing after reopen")
	}
	if restored.Requestor() != alias {
		t.Errorf("Expected restored requestor %q, got %q", alias, restored.Requestor())
	}
	if restored.Tx() != "" {
		t.Errorf("Unpaid invoice restored with tx %q", restored.Tx())
	}

	paid, ok := reopened.Get(plainID)
	if !ok {
		t.Fatal("Paid invoice missing after reopen")
	}
	if paid.Tx() != "feedcafe03" {
		t.Errorf("Expected restored tx feedcafe03, got %q", paid.Tx())
	}
	status, err := reopened.GetStatus(plainID)
	if err != nil {
		t.Fatalf("Failed to get restored status: %v", err)
	}
	if status != StatusPaid {
		t.Errorf("Expected restored invoice paid, got %s", status)
	}
}

func TestStoreLoadSkipsBadRecords(t *testing.T) {
	good := storedRequest(t, 0x47)
	snapshot := map[string]invoiceRecord{
		good.ID():  {Hex: hex.EncodeToString(good.Raw()), Requestor: "unknown"},
		"bad-hex":  {Hex: "zz-not-hex", Requestor: "unknown"},
		"bad-wire": {Hex: "ffffffff", Requestor: "unknown"},
	}
	data, err := json.MarshalIndent(snapshot, "", "    ")
	if err != nil {
		t.Fatalf("Failed to marshal snapshot: %v", err)
	}

	path := filepath.Join(t.TempDir(), "invoices.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write snapshot: %v", err)
	}

	cm, logger := testLogger(t)
	cm.SetConfig("invoices_file", path)
	st := NewInvoiceStore(cm, logger)

	if n := len(st.List()); n != 1 {
		t.Fatalf("Expected 1 loadable invoice, got %d", n)
	}
	if _, ok := st.Get(good.ID()); !ok {
		t.Error("Good invoice not loaded")
	}
}

func TestStoreCorruptSnapshotStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invoices.json")
	if err := os.WriteFile(path, []byte("not json at all"), 0644); err != nil {
		t.Fatalf("Failed to write snapshot: %v", err)
	}

	cm, logger := testLogger(t)
	cm.SetConfig("invoices_file", path)
	st := NewInvoiceStore(cm, logger)

	if n := len(st.List()); n != 0 {
		t.Errorf("Expected empty store, got %d invoices", n)
	}

	// The store must still accept new invoices afterwards.
	if _, err := st.Add(storedRequest(t, 0x48)); err != nil {
		t.Fatalf("Failed to add after corrupt load: %v", err)
	}
}

func TestStoreSnapshotFormat(t *testing.T) {
	st, _ := testStore(t)
	pr := storedRequest(t, 0x49)

	id, err := st.Add(pr)
	if err != nil {
		t.Fatalf("Failed to add invoice: %v", err)
	}
	if err := st.SetPaid(id, "feedcafe04"); err != nil {
		t.Fatalf("Failed to mark paid: %v", err)
	}

	data, err := os.ReadFile(st.Path())
	if err != nil {
		t.Fatalf("Failed to read snapshot: %v", err)
	}
	var records map[string]invoiceRecord
	if err := json.Unmarshal(data, &records); err != nil {
		t.Fatalf("Snapshot is not valid JSON: %v", err)
	}

	rec, ok := records[id]
	if !ok {
		t.Fatalf("Snapshot missing invoice %s", id)
	}
	raw, err := hex.DecodeString(rec.Hex)
	if err != nil {
		t.Fatalf("Snapshot hex does not decode: %v", err)
	}
	if !bytes.Equal(raw, pr.Raw()) {
		t.Error("Snapshot bytes differ from original request")
	}
	if rec.TxID == nil || *rec.TxID != "feedcafe04" {
		t.Errorf("Snapshot txid not recorded, got %v", rec.TxID)
	}

	// No temp files may survive a completed save.
	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(st.Path()), ".invoices-*.tmp"))
	if err != nil {
		t.Fatalf("Failed to glob temp files: %v", err)
	}
	if len(leftovers) != 0 {
		t.Errorf("Temp files left behind: %v", leftovers)
	}
}
