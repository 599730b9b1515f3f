package orders

// Group turns a flat line scan into an order-keyed view. Pure: every
// line appears exactly once under its order, no side effects, within-group
// order carries no meaning.
func Group(lines []OrderLine) map[string][]Item {
	grouped := make(map[string][]Item, len(lines))
	for _, line := range lines {
		grouped[line.OrderID] = append(grouped[line.OrderID], Item{
			BookID:   line.BookID,
			Quantity: line.Quantity,
		})
	}
	return grouped
}
