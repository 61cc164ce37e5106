package dto

type AddItemInput struct {
	CustomerID  string
	ItemID      string
	Quantity    int
	OptionLabel string
}

type UpdateItemInput struct {
	CustomerID string
	LineID     string
	Quantity   int // <= 0 removes the line
}
