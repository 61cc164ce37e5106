package dto

type UpdateStatusInput struct {
	OrderID string
	Status  string // validated against model.OrderStatus
	Actor   string
	Reason  string
}
