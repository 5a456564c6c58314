package service

import "time"

// The handler wrappers pair each collaborator with the per-call timeout the
// orchestrator applies to it.

type CartHandler struct {
	cart    CartService
	timeout time.Duration
}

func NewCartHandler(cart CartService, timeout time.Duration) *CartHandler {
	return &CartHandler{cart: cart, timeout: timeout}
}

type PaymentHandler struct {
	gateway PaymentGateway
	timeout time.Duration
}

func NewPaymentHandler(gateway PaymentGateway, timeout time.Duration) *PaymentHandler {
	return &PaymentHandler{gateway: gateway, timeout: timeout}
}

type PrinterHandler struct {
	printer ReceiptPrinter
	timeout time.Duration
}

func NewPrinterHandler(printer ReceiptPrinter, timeout time.Duration) *PrinterHandler {
	return &PrinterHandler{printer: printer, timeout: timeout}
}

type FiscalHandler struct {
	device  FiscalDevice
	timeout time.Duration
}

func NewFiscalHandler(device FiscalDevice, timeout time.Duration) *FiscalHandler {
	return &FiscalHandler{device: device, timeout: timeout}
}
