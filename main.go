package main

import "github.com/coinpath-labs/paymentd/internal/cmd"

func main() {
	cmd.Execute()
}
