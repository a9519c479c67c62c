package datastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	contractx "github.com/tablewise/concierge/agent/contract"
)

type Config struct {
	DSN             string        `envconfig:"DSN" split_words:"true" required:"true"`
	MaxOpenConns    int           `envconfig:"MAX_OPEN_CONNS" split_words:"true" default:"10"`
	ConnMaxIdleTime time.Duration `envconfig:"CONN_MAX_IDLE_TIME" split_words:"true" default:"5m"`
}

// NewDB opens a Postgres-backed bun handle. The connection is lazy; the first
// query dials.
func NewDB(cfg Config) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN)))
	if cfg.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqldb.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
	return bun.NewDB(sqldb, pgdialect.New())
}

// Store implements the restaurant data boundary over Postgres.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("db handle is required")
	}
	return &Store{db: db}, nil
}

var _ contractx.DataStore = (*Store)(nil)

func (s *Store) GetRestaurant(ctx context.Context, restaurantID string) (contractx.Restaurant, error) {
	var row restaurantRow
	err := s.db.NewSelect().Model(&row).Where("r.id = ?", restaurantID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return contractx.Restaurant{}, fmt.Errorf("%w: unknown restaurant %q", contractx.ErrValidation, restaurantID)
	}
	if err != nil {
		return contractx.Restaurant{}, fmt.Errorf("select restaurant: %w", err)
	}
	return contractx.Restaurant{
		ID:           row.ID,
		Name:         row.Name,
		Address:      row.Address,
		Timezone:     row.Timezone,
		CakePrice:    row.CakePrice,
		FlowersPrice: row.FlowersPrice,
	}, nil
}

func (s *Store) GetMenuItems(ctx context.Context, restaurantID string) ([]contractx.MenuItem, error) {
	var rows []menuItemRow
	err := s.db.NewSelect().Model(&rows).
		Where("mi.restaurant_id = ?", restaurantID).
		Order("mi.name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select menu items: %w", err)
	}
	items := make([]contractx.MenuItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, contractx.MenuItem{
			Name:        r.Name,
			Description: r.Description,
			Price:       r.Price,
			Tags:        r.Tags,
		})
	}
	return items, nil
}

func (s *Store) GetTableTypes(ctx context.Context, restaurantID string) ([]contractx.TableOption, error) {
	rows, err := s.tableTypes(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	options := make([]contractx.TableOption, 0, len(rows))
	for _, r := range rows {
		options = append(options, contractx.TableOption{
			TableType: r.TableType,
			Price:     r.Price,
			Capacity:  r.Capacity,
		})
	}
	return options, nil
}

func (s *Store) GetTableInventory(ctx context.Context, restaurantID string) (map[string]int, error) {
	rows, err := s.tableTypes(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	inventory := make(map[string]int, len(rows))
	for _, r := range rows {
		inventory[r.TableType] = r.Inventory
	}
	return inventory, nil
}

func (s *Store) GetRestaurantHours(ctx context.Context, restaurantID string) ([]contractx.DayHours, error) {
	var rows []restaurantHourRow
	err := s.db.NewSelect().Model(&rows).
		Where("rh.restaurant_id = ?", restaurantID).
		Order("rh.weekday ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select restaurant hours: %w", err)
	}
	hours := make([]contractx.DayHours, 0, len(rows))
	for _, r := range rows {
		hours = append(hours, contractx.DayHours{
			Weekday: time.Weekday(r.Weekday),
			Open:    r.OpenTime,
			Close:   r.CloseTime,
		})
	}
	return hours, nil
}

func (s *Store) GetFullyBookedDates(ctx context.Context, restaurantID string) ([]string, error) {
	var rows []fullyBookedDateRow
	err := s.db.NewSelect().Model(&rows).
		Where("fbd.restaurant_id = ?", restaurantID).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select fully booked dates: %w", err)
	}
	dates := make([]string, 0, len(rows))
	for _, r := range rows {
		dates = append(dates, r.Date)
	}
	return dates, nil
}

func (s *Store) CountReservations(ctx context.Context, restaurantID, tableType, date, timeOfDay string) (int, error) {
	count, err := s.db.NewSelect().Model((*reservationRow)(nil)).
		Where("rsv.restaurant_id = ?", restaurantID).
		Where("rsv.table_type = ?", tableType).
		Where("rsv.date = ?", date).
		Where("rsv.time = ?", timeOfDay).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count reservations: %w", err)
	}
	return count, nil
}

// CreateReservation is an atomic check-then-insert: the count and the insert
// run in one transaction so a slot that filled between the agent's check and
// the commit surfaces as ErrSlotConflict instead of an overbooking.
func (s *Store) CreateReservation(ctx context.Context, payload contractx.ReservationPayload) (string, error) {
	id := uuid.NewString()
	row := reservationRow{
		ID:              id,
		RestaurantID:    payload.RestaurantID,
		CustomerName:    payload.CustomerName,
		CustomerEmail:   payload.CustomerEmail,
		CustomerPhone:   payload.CustomerPhone,
		Date:            payload.Date,
		Time:            payload.Time,
		PartySize:       payload.PartySize,
		TableType:       payload.TableType,
		CelebrationType: payload.CelebrationType,
		Cake:            payload.Cake,
		CakePrice:       payload.CakePrice,
		Flowers:         payload.Flowers,
		FlowersPrice:    payload.FlowersPrice,
		HotelName:       payload.HotelName,
		CreatedAt:       time.Now().UTC(),
	}

	err := s.db.RunInTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable}, func(ctx context.Context, tx bun.Tx) error {
		var tt tableTypeRow
		err := tx.NewSelect().Model(&tt).
			Where("tt.restaurant_id = ?", payload.RestaurantID).
			Where("lower(tt.table_type) = lower(?)", payload.TableType).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: unknown table_type=%q", contractx.ErrValidation, payload.TableType)
		}
		if err != nil {
			return fmt.Errorf("select table type: %w", err)
		}

		reserved, err := tx.NewSelect().Model((*reservationRow)(nil)).
			Where("rsv.restaurant_id = ?", payload.RestaurantID).
			Where("rsv.table_type = ?", tt.TableType).
			Where("rsv.date = ?", payload.Date).
			Where("rsv.time = ?", payload.Time).
			Count(ctx)
		if err != nil {
			return fmt.Errorf("count reservations: %w", err)
		}
		if reserved >= tt.Inventory {
			return fmt.Errorf("%w: %s at %s on %s", contractx.ErrSlotConflict, tt.TableType, payload.Time, payload.Date)
		}

		row.TableType = tt.TableType
		if _, err := tx.NewInsert().Model(&row).Exec(ctx); err != nil {
			return fmt.Errorf("insert reservation: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) tableTypes(ctx context.Context, restaurantID string) ([]tableTypeRow, error) {
	var rows []tableTypeRow
	err := s.db.NewSelect().Model(&rows).
		Where("tt.restaurant_id = ?", restaurantID).
		Order("tt.capacity ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select table types: %w", err)
	}
	return rows, nil
}
