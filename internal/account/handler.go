package account

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/simple-bank/simple_bank/internal/apperrors"
)

// Not-found messages for transfers, chosen by which side is missing.
const (
	MsgAccountNotFound    = "account could not be found"
	MsgBothNotFound       = "Sender and recipient accounts could not be found"
	MsgSenderNotFound     = "Sender account could not be found"
	MsgRecipientNotFound  = "Recipient account could not be found"
	msgInvalidRequestBody = "invalid request body"
)

// Handler exposes account HTTP endpoints.
type Handler struct {
	service  *Service
	validate *validator.Validate
}

// NewHandler builds an account HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service, validate: validator.New()}
}

type createRequest struct {
	Name string `json:"name" example:"Alice"`
}

type amountRequest struct {
	Amount decimal.Decimal `json:"amount" swaggertype:"number" example:"50"`
}

type transferRequest struct {
	SenderID    string          `json:"senderId" validate:"required,uuid" example:"3f1c2a9e-8d4b-4f6a-9c2e-1b7d5e0a4c3f"`
	RecipientID string          `json:"recipientId" validate:"required,uuid" example:"9a7b6c5d-4e3f-4a2b-8c1d-0e9f8a7b6c5d"`
	Amount      decimal.Decimal `json:"amount" swaggertype:"number" example:"20"`
}

// Monetary fields are json.Number so they always encode as JSON numbers,
// whatever decimal.MarshalJSONWithoutQuotes is set to.
type accountResponse struct {
	ID      string      `json:"id" example:"3f1c2a9e-8d4b-4f6a-9c2e-1b7d5e0a4c3f"`
	Name    string      `json:"name" example:"Alice"`
	Balance json.Number `json:"balance" swaggertype:"number" example:"30.5"`
}

type transferResponse struct {
	Sender    accountResponse `json:"sender"`
	Recipient accountResponse `json:"recipient"`
}

type convertedBalanceResponse struct {
	CurrencyCode    string      `json:"currencyCode" example:"EUR"`
	ConvertedAmount json.Number `json:"convertedAmount" swaggertype:"number" example:"27.45"`
}

// errorResponse documents the body written by the application error handler.
type errorResponse struct {
	Error string `json:"error" example:"insufficient funds"`
}

func toResponse(a *Account) accountResponse {
	return accountResponse{ID: a.ID, Name: a.Name, Balance: money(a.Balance)}
}

func money(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

// Get returns a single account.
//
// @Summary Get an account
// @Tags accounts
// @Produce json
// @Param id path string true "Account ID"
// @Success 200 {object} accountResponse
// @Failure 404 {object} errorResponse
// @Router /accounts/{id} [get]
func (h *Handler) Get(c *fiber.Ctx) error {
	account, err := h.service.FindAccount(c.UserContext(), c.Params("id"))
	if err != nil {
		return toHTTPError(err)
	}
	if account == nil {
		return fiber.NewError(http.StatusNotFound, MsgAccountNotFound)
	}
	return c.Status(http.StatusOK).JSON(toResponse(account))
}

// Create opens a new account with a zero balance.
//
// @Summary Create an account
// @Tags accounts
// @Accept json
// @Produce json
// @Param request body createRequest true "Account holder"
// @Success 200 {object} accountResponse
// @Failure 400 {object} errorResponse
// @Router /accounts [post]
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, msgInvalidRequestBody)
	}
	account, err := h.service.CreateAccount(c.UserContext(), req.Name)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(toResponse(&account))
}

// Deposit credits the account named in the path.
//
// @Summary Deposit funds
// @Tags accounts
// @Accept json
// @Produce json
// @Param id path string true "Account ID"
// @Param Idempotency-Key header string false "Replays the first response for a repeated key"
// @Param request body amountRequest true "Amount to deposit"
// @Success 200 {object} accountResponse
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Failure 409 {object} errorResponse
// @Router /accounts/{id}/deposits [post]
func (h *Handler) Deposit(c *fiber.Ctx) error {
	var req amountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, msgInvalidRequestBody)
	}
	account, err := h.service.Deposit(c.UserContext(), c.Params("id"), req.Amount)
	if err != nil {
		return toHTTPError(err)
	}
	if account == nil {
		return fiber.NewError(http.StatusNotFound, MsgAccountNotFound)
	}
	return c.Status(http.StatusOK).JSON(toResponse(account))
}

// Withdraw debits the account named in the path.
//
// @Summary Withdraw funds
// @Tags accounts
// @Accept json
// @Produce json
// @Param id path string true "Account ID"
// @Param Idempotency-Key header string false "Replays the first response for a repeated key"
// @Param request body amountRequest true "Amount to withdraw"
// @Success 200 {object} accountResponse
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Failure 409 {object} errorResponse
// @Router /accounts/{id}/withdrawals [post]
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	var req amountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, msgInvalidRequestBody)
	}
	account, err := h.service.Withdraw(c.UserContext(), c.Params("id"), req.Amount)
	if err != nil {
		return toHTTPError(err)
	}
	if account == nil {
		return fiber.NewError(http.StatusNotFound, MsgAccountNotFound)
	}
	return c.Status(http.StatusOK).JSON(toResponse(account))
}

// Transfer moves funds between two accounts.
//
// @Summary Transfer funds
// @Tags transfers
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Replays the first response for a repeated key"
// @Param request body transferRequest true "Sender, recipient and amount"
// @Success 200 {object} transferResponse
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Failure 409 {object} errorResponse
// @Router /transfers [post]
func (h *Handler) Transfer(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, msgInvalidRequestBody)
	}
	if err := h.validate.Struct(req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "senderId and recipientId must be valid account ids")
	}

	res, err := h.service.Transfer(c.UserContext(), req.SenderID, req.RecipientID, req.Amount)
	if err != nil {
		return toHTTPError(err)
	}
	switch {
	case res.Sender == nil && res.Recipient == nil:
		return fiber.NewError(http.StatusNotFound, MsgBothNotFound)
	case res.Sender == nil:
		return fiber.NewError(http.StatusNotFound, MsgSenderNotFound)
	case res.Recipient == nil:
		return fiber.NewError(http.StatusNotFound, MsgRecipientNotFound)
	}

	return c.Status(http.StatusOK).JSON(transferResponse{
		Sender:    toResponse(res.Sender),
		Recipient: toResponse(res.Recipient),
	})
}

// ConvertedBalances reports the balance in the currencies named by the
// "currencies" query parameter.
//
// @Summary Balance in other currencies
// @Tags accounts
// @Produce json
// @Param id path string true "Account ID"
// @Param currencies query string false "Comma separated currency codes, e.g. EUR,JPY"
// @Success 200 {array} convertedBalanceResponse
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Failure 502 {object} errorResponse
// @Router /accounts/{id}/balances [get]
func (h *Handler) ConvertedBalances(c *fiber.Ctx) error {
	list, err := h.service.ConvertedBalances(c.UserContext(), c.Params("id"), c.Query("currencies"))
	if err != nil {
		return toHTTPError(err)
	}
	out := make([]convertedBalanceResponse, 0, len(list))
	for _, b := range list {
		out = append(out, convertedBalanceResponse{CurrencyCode: b.CurrencyCode, ConvertedAmount: money(b.ConvertedAmount)})
	}
	return c.Status(http.StatusOK).JSON(out)
}

// toHTTPError maps domain errors onto HTTP statuses. Anything unrecognised is
// passed through for the application error handler to report as a 500.
func toHTTPError(err error) error {
	msg, ok := apperrors.Message(err)
	if !ok {
		return err
	}
	switch {
	case errors.Is(err, apperrors.ErrValidation), errors.Is(err, apperrors.ErrBusinessRule):
		return fiber.NewError(http.StatusBadRequest, msg)
	case errors.Is(err, apperrors.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, msg)
	case errors.Is(err, apperrors.ErrConflict):
		return fiber.NewError(http.StatusConflict, msg)
	case errors.Is(err, apperrors.ErrUpstreamUnavailable):
		return fiber.NewError(http.StatusBadGateway, msg)
	default:
		return err
	}
}
