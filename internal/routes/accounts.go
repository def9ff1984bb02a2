package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/simple-bank/simple_bank/internal/account"
)

// RegisterAccountRoutes wires account and transfer endpoints.
func RegisterAccountRoutes(r fiber.Router, h *account.Handler) {
	r.Post("/accounts", h.Create)
	r.Get("/accounts/:id", h.Get)
	r.Post("/accounts/:id/deposits", h.Deposit)
	r.Post("/accounts/:id/withdrawals", h.Withdraw)
	r.Get("/accounts/:id/balances", h.ConvertedBalances)
	r.Post("/transfers", h.Transfer)
}
