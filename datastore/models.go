package datastore

import (
	"time"

	"github.com/uptrace/bun"
)

type restaurantRow struct {
	bun.BaseModel `bun:"table:restaurants,alias:r"`

	ID           string  `bun:"id,pk"`
	Name         string  `bun:"name,notnull"`
	Address      string  `bun:"address"`
	Timezone     string  `bun:"timezone"`
	CakePrice    float64 `bun:"cake_price"`
	FlowersPrice float64 `bun:"flowers_price"`
}

type menuItemRow struct {
	bun.BaseModel `bun:"table:menu_items,alias:mi"`

	ID           int64    `bun:"id,pk,autoincrement"`
	RestaurantID string   `bun:"restaurant_id,notnull"`
	Name         string   `bun:"name,notnull"`
	Description  string   `bun:"description"`
	Price        float64  `bun:"price"`
	Tags         []string `bun:"tags,array"`
}

// tableTypeRow carries both the catalog entry (price, capacity) and the
// physical inventory count for one table category.
type tableTypeRow struct {
	bun.BaseModel `bun:"table:table_types,alias:tt"`

	ID           int64   `bun:"id,pk,autoincrement"`
	RestaurantID string  `bun:"restaurant_id,notnull"`
	TableType    string  `bun:"table_type,notnull"`
	Price        float64 `bun:"price"`
	Capacity     int     `bun:"capacity,notnull"`
	Inventory    int     `bun:"inventory,notnull"`
}

type restaurantHourRow struct {
	bun.BaseModel `bun:"table:restaurant_hours,alias:rh"`

	ID           int64  `bun:"id,pk,autoincrement"`
	RestaurantID string `bun:"restaurant_id,notnull"`
	Weekday      int    `bun:"weekday,notnull"` // 0=Sunday .. 6=Saturday
	OpenTime     string `bun:"open_time,notnull"`
	CloseTime    string `bun:"close_time,notnull"`
}

type fullyBookedDateRow struct {
	bun.BaseModel `bun:"table:fully_booked_dates,alias:fbd"`

	ID           int64  `bun:"id,pk,autoincrement"`
	RestaurantID string `bun:"restaurant_id,notnull"`
	Date         string `bun:"date,notnull"` // "2006-01-02"
}

type reservationRow struct {
	bun.BaseModel `bun:"table:reservations,alias:rsv"`

	ID           string `bun:"id,pk"`
	RestaurantID string `bun:"restaurant_id,notnull"`

	CustomerName  string `bun:"customer_name,notnull"`
	CustomerEmail string `bun:"customer_email,notnull"`
	CustomerPhone string `bun:"customer_phone,notnull"`

	Date      string `bun:"date,notnull"`
	Time      string `bun:"time,notnull"`
	PartySize int    `bun:"party_size,notnull"`
	TableType string `bun:"table_type,notnull"`

	CelebrationType string  `bun:"celebration_type"`
	Cake            bool    `bun:"cake"`
	CakePrice       float64 `bun:"cake_price"`
	Flowers         bool    `bun:"flowers"`
	FlowersPrice    float64 `bun:"flowers_price"`
	HotelName       string  `bun:"hotel_name"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
