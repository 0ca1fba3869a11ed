package gormstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"khatma/internal/models"
	"khatma/internal/storage"
)

const readingOrder = "friday_number, khatma_number, group_number"

func (s *Store) ListFridays(ctx context.Context) ([]models.Friday, error) {
	var fridays []models.Friday
	err := s.db.WithContext(ctx).Order("friday_number").Find(&fridays).Error
	return fridays, translate("list fridays", err)
}

func (s *Store) GetFriday(ctx context.Context, number int) (*models.Friday, error) {
	var f models.Friday
	if err := s.db.WithContext(ctx).Where("friday_number = ?", number).First(&f).Error; err != nil {
		return nil, translate("get friday", err)
	}
	return &f, nil
}

func (s *Store) CreateFridays(ctx context.Context, fridays []models.Friday) error {
	if len(fridays) == 0 {
		return nil
	}
	return translate("create fridays", s.db.WithContext(ctx).Create(&fridays).Error)
}

func (s *Store) UpdateFridayDate(ctx context.Context, number int, date time.Time, hijri *string) error {
	updates := map[string]any{"date": date}
	if hijri != nil {
		updates["date_hijri"] = *hijri
	}
	res := s.db.WithContext(ctx).Model(&models.Friday{}).Where("friday_number = ?", number).Updates(updates)
	if res.Error != nil {
		return translate("update friday date", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update friday date: %w", storage.ErrNotFound)
	}
	return nil
}

func (s *Store) AllReadings(ctx context.Context) ([]models.Reading, error) {
	var readings []models.Reading
	err := s.db.WithContext(ctx).Order(readingOrder).Find(&readings).Error
	return readings, translate("all readings", err)
}

func (s *Store) GetReading(ctx context.Context, id uint) (*models.Reading, error) {
	var r models.Reading
	if err := s.db.WithContext(ctx).First(&r, id).Error; err != nil {
		return nil, translate("get reading", err)
	}
	return &r, nil
}

func (s *Store) ReadingsForFriday(ctx context.Context, fridayNumber int) ([]models.Reading, error) {
	var readings []models.Reading
	err := s.db.WithContext(ctx).
		Where("friday_number = ?", fridayNumber).
		Order("group_number").
		Find(&readings).Error
	return readings, translate("readings for friday", err)
}

func (s *Store) ReadingsForPerson(ctx context.Context, name string) ([]models.Reading, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	var readings []models.Reading
	err := s.db.WithContext(ctx).
		Where(anySlot(s.db, "= ?", name)).
		Order(readingOrder).
		Find(&readings).Error
	return readings, translate("readings for person", err)
}

func (s *Store) SearchReadings(ctx context.Context, term string) ([]models.Reading, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return s.AllReadings(ctx)
	}
	pattern := "%" + escapeLike(term) + "%"
	var readings []models.Reading
	err := s.db.WithContext(ctx).
		Where(anySlot(s.db, `LIKE ? ESCAPE '\'`, pattern)).
		Order(readingOrder).
		Find(&readings).Error
	return readings, translate("search readings", err)
}

// CreateReadings inserts a batch, skipping groups that already have a reading for the Friday
func (s *Store) CreateReadings(ctx context.Context, readings []models.Reading) error {
	if len(readings) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(&readings, 100).Error
	return translate("create readings", err)
}

func (s *Store) SetSlotStatus(ctx context.Context, readingID uint, position int, done bool, at time.Time) error {
	if !models.ValidPosition(position) {
		return fmt.Errorf("set slot status: invalid position %d", position)
	}
	_, _, statusCol, dateCol := models.SlotColumns(position)

	updates := map[string]any{statusCol: done, dateCol: nil}
	if done {
		updates[dateCol] = at
	}
	res := s.db.WithContext(ctx).Model(&models.Reading{}).Where("id = ?", readingID).Updates(updates)
	if res.Error != nil {
		return translate("set slot status", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("set slot status: %w", storage.ErrNotFound)
	}
	return nil
}

// anySlot builds "person1_name <cond> OR person2_name <cond> OR person3_name <cond>"
func anySlot(db *gorm.DB, cond string, arg any) *gorm.DB {
	q := db.Session(&gorm.Session{NewDB: true})
	for pos := 1; pos <= models.SlotCount; pos++ {
		_, nameCol, _, _ := models.SlotColumns(pos)
		if pos == 1 {
			q = q.Where(nameCol+" "+cond, arg)
		} else {
			q = q.Or(nameCol+" "+cond, arg)
		}
	}
	return q
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
