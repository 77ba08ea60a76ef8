package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "Pending"
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusCompleted  OrderStatus = "Completed"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

type Role struct {
	ID          uuid.UUID          `json:"id"`
	Name        string             `json:"name"`
	Description pgtype.Text        `json:"description"`
	CreatedAt   time.Time          `json:"created_at"`
	CreatedBy   pgtype.Text        `json:"created_by"`
	UpdatedAt   pgtype.Timestamptz `json:"updated_at"`
	UpdatedBy   pgtype.Text        `json:"updated_by"`
}

// User rows are always read joined with their role name.
type User struct {
	ID           uuid.UUID          `json:"id"`
	Username     string             `json:"username"`
	PasswordHash string             `json:"password_hash"`
	Email        pgtype.Text        `json:"email"`
	RoleID       uuid.UUID          `json:"role_id"`
	RoleName     string             `json:"role_name"`
	CreatedAt    time.Time          `json:"created_at"`
	CreatedBy    pgtype.Text        `json:"created_by"`
	UpdatedAt    pgtype.Timestamptz `json:"updated_at"`
	UpdatedBy    pgtype.Text        `json:"updated_by"`
}

type Category struct {
	ID          uuid.UUID          `json:"id"`
	Name        string             `json:"name"`
	Description pgtype.Text        `json:"description"`
	CreatedAt   time.Time          `json:"created_at"`
	CreatedBy   pgtype.Text        `json:"created_by"`
	UpdatedAt   pgtype.Timestamptz `json:"updated_at"`
	UpdatedBy   pgtype.Text        `json:"updated_by"`
}

type Dish struct {
	ID           uuid.UUID          `json:"id"`
	Name         string             `json:"name"`
	Description  pgtype.Text        `json:"description"`
	Price        pgtype.Numeric     `json:"price"`
	CategoryID   uuid.UUID          `json:"category_id"`
	CategoryName string             `json:"category_name"`
	CreatedAt    time.Time          `json:"created_at"`
	CreatedBy    pgtype.Text        `json:"created_by"`
	UpdatedAt    pgtype.Timestamptz `json:"updated_at"`
	UpdatedBy    pgtype.Text        `json:"updated_by"`
}

type Ingredient struct {
	ID        uuid.UUID          `json:"id"`
	Name      string             `json:"name"`
	CreatedAt time.Time          `json:"created_at"`
	CreatedBy pgtype.Text        `json:"created_by"`
	UpdatedAt pgtype.Timestamptz `json:"updated_at"`
	UpdatedBy pgtype.Text        `json:"updated_by"`
}

type DishIngredient struct {
	ID             uuid.UUID          `json:"id"`
	DishID         uuid.UUID          `json:"dish_id"`
	DishName       string             `json:"dish_name"`
	IngredientID   uuid.UUID          `json:"ingredient_id"`
	IngredientName string             `json:"ingredient_name"`
	Quantity       pgtype.Text        `json:"quantity"`
	Notes          pgtype.Text        `json:"notes"`
	CreatedAt      time.Time          `json:"created_at"`
	CreatedBy      pgtype.Text        `json:"created_by"`
	UpdatedAt      pgtype.Timestamptz `json:"updated_at"`
	UpdatedBy      pgtype.Text        `json:"updated_by"`
}

type Menu struct {
	ID          uuid.UUID          `json:"id"`
	Name        string             `json:"name"`
	Description pgtype.Text        `json:"description"`
	CreatedAt   time.Time          `json:"created_at"`
	CreatedBy   pgtype.Text        `json:"created_by"`
	UpdatedAt   pgtype.Timestamptz `json:"updated_at"`
	UpdatedBy   pgtype.Text        `json:"updated_by"`
}

type MenuDish struct {
	ID        uuid.UUID          `json:"id"`
	MenuID    uuid.UUID          `json:"menu_id"`
	MenuName  string             `json:"menu_name"`
	DishID    uuid.UUID          `json:"dish_id"`
	DishName  string             `json:"dish_name"`
	CreatedAt time.Time          `json:"created_at"`
	CreatedBy pgtype.Text        `json:"created_by"`
	UpdatedAt pgtype.Timestamptz `json:"updated_at"`
	UpdatedBy pgtype.Text        `json:"updated_by"`
}

type Cart struct {
	ID        uuid.UUID          `json:"id"`
	UserID    uuid.UUID          `json:"user_id"`
	Version   int32              `json:"version"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt pgtype.Timestamptz `json:"updated_at"`
}

type CartItem struct {
	ID        uuid.UUID          `json:"id"`
	CartID    uuid.UUID          `json:"cart_id"`
	DishID    uuid.UUID          `json:"dish_id"`
	Quantity  int32              `json:"quantity"`
	Notes     pgtype.Text        `json:"notes"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt pgtype.Timestamptz `json:"updated_at"`
}

// CartLine is a cart item joined with the current state of its dish.
type CartLine struct {
	ID          uuid.UUID      `json:"id"`
	DishID      uuid.UUID      `json:"dish_id"`
	DishName    string         `json:"dish_name"`
	Price       pgtype.Numeric `json:"price"`
	DishDeleted bool           `json:"dish_deleted"`
	Quantity    int32          `json:"quantity"`
	Notes       pgtype.Text    `json:"notes"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Order rows are always read joined with the owner's username.
type Order struct {
	ID        uuid.UUID          `json:"id"`
	UserID    uuid.UUID          `json:"user_id"`
	Username  string             `json:"username"`
	Status    OrderStatus        `json:"status"`
	Total     pgtype.Numeric     `json:"total"`
	Notes     pgtype.Text        `json:"notes"`
	Version   int32              `json:"version"`
	CreatedAt time.Time          `json:"created_at"`
	CreatedBy pgtype.Text        `json:"created_by"`
	UpdatedAt pgtype.Timestamptz `json:"updated_at"`
	UpdatedBy pgtype.Text        `json:"updated_by"`
}

type OrderItem struct {
	ID        uuid.UUID          `json:"id"`
	OrderID   uuid.UUID          `json:"order_id"`
	DishID    uuid.UUID          `json:"dish_id"`
	DishName  string             `json:"dish_name"`
	Quantity  int32              `json:"quantity"`
	Price     pgtype.Numeric     `json:"price"`
	Notes     pgtype.Text        `json:"notes"`
	CreatedAt time.Time          `json:"created_at"`
	CreatedBy pgtype.Text        `json:"created_by"`
	UpdatedAt pgtype.Timestamptz `json:"updated_at"`
	UpdatedBy pgtype.Text        `json:"updated_by"`
}
