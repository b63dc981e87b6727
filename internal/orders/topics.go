package orders

const (
	TopicCartChanged    = "storefront.cart.changed"
	TopicSessionChanged = "storefront.session.changed"
	TopicOrderPlaced    = "storefront.order.placed"
)

// Partition key = user_id, so every event of one user keeps its order.
func PartitionKey(userID string) []byte { return []byte(userID) }
