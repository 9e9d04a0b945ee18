package repository

// Factory hands out the repositories backed by one store.
type Factory interface {
	Users() UserRepository
	Orders() OrderRepository
	Payments() PaymentRepository
	Inventory() InventoryRepository
	Settings() SettingsRepository
}
