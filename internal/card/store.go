package card

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// cardRow maps the subset of the card database's datas table the server needs.
type cardRow struct {
	ID    uint32 `gorm:"column:id;primaryKey"`
	OT    uint32 `gorm:"column:ot"`
	Alias uint32 `gorm:"column:alias"`
	Type  uint32 `gorm:"column:type"`
}

func (cardRow) TableName() string { return "datas" }

func (r cardRow) data() Data {
	return Data{Code: r.ID, Alias: r.Alias, Type: r.Type, Scope: r.OT}
}

// LoadCatalog reads every card row into memory. Lookups happen on the room
// goroutines, so the catalog is never queried lazily.
func LoadCatalog(ctx context.Context, db *gorm.DB) (*MemoryCatalog, error) {
	var rows []cardRow
	if err := db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load card catalog: %w", err)
	}
	cards := make([]Data, 0, len(rows))
	for _, r := range rows {
		cards = append(cards, r.data())
	}
	return NewMemoryCatalog(cards...), nil
}
