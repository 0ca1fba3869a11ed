package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"khatma/internal/models"
	"khatma/internal/storage"
)

func (s *Store) ListPersons(ctx context.Context) ([]models.Person, error) {
	var persons []models.Person
	err := s.db.WithContext(ctx).Order("group_number, id").Find(&persons).Error
	return persons, translate("list persons", err)
}

func (s *Store) GetPerson(ctx context.Context, id uint) (*models.Person, error) {
	var p models.Person
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, translate("get person", err)
	}
	return &p, nil
}

func (s *Store) FindPersonsByName(ctx context.Context, name string) ([]models.Person, error) {
	var persons []models.Person
	err := s.db.WithContext(ctx).
		Where("name = ?", strings.TrimSpace(name)).
		Order("id").
		Find(&persons).Error
	return persons, translate("find persons by name", err)
}

func (s *Store) GetPersonByChatID(ctx context.Context, chatID string) (*models.Person, error) {
	var p models.Person
	if err := s.db.WithContext(ctx).Where("telegram_chat_id = ?", chatID).First(&p).Error; err != nil {
		return nil, translate("get person by chat id", err)
	}
	return &p, nil
}

func (s *Store) ListLinkedPersons(ctx context.Context) ([]models.Person, error) {
	var persons []models.Person
	err := s.db.WithContext(ctx).
		Where("telegram_chat_id IS NOT NULL AND telegram_chat_id <> ''").
		Order("id").
		Find(&persons).Error
	return persons, translate("list linked persons", err)
}

func (s *Store) ListAdmins(ctx context.Context) ([]models.Person, error) {
	var persons []models.Person
	err := s.db.WithContext(ctx).Where("is_admin = ?", true).Order("id").Find(&persons).Error
	return persons, translate("list admins", err)
}

func (s *Store) CreatePerson(ctx context.Context, p *models.Person) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("create person: name is empty")
	}
	return translate("create person", s.db.WithContext(ctx).Create(p).Error)
}

// RenamePerson updates the person row and every slot that references them.
// Slots are matched by person id; legacy slots without an id are matched by
// the old name as long as no other person shares it. Reading rows keep their
// updated_at so a rename followed by its inverse leaves them unchanged.
func (s *Store) RenamePerson(ctx context.Context, id uint, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return fmt.Errorf("rename person: name is empty")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Person
		if err := tx.First(&p, id).Error; err != nil {
			return err
		}
		oldName := p.Name
		if oldName == newName {
			return nil
		}

		// taking another person's name would merge their legacy slots on the way back
		var taken int64
		if err := tx.Model(&models.Person{}).
			Where("name = ? AND id <> ?", newName, id).
			Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return fmt.Errorf("name %q already belongs to another person: %w", newName, storage.ErrConflict)
		}

		if err := tx.Model(&p).Update("name", newName).Error; err != nil {
			return err
		}

		var namesakes int64
		if err := tx.Model(&models.Person{}).
			Where("name = ? AND id <> ?", oldName, id).
			Count(&namesakes).Error; err != nil {
			return err
		}

		for pos := 1; pos <= models.SlotCount; pos++ {
			idCol, nameCol, _, _ := models.SlotColumns(pos)
			if err := tx.Model(&models.Reading{}).
				Where(idCol+" = ?", id).
				UpdateColumn(nameCol, newName).Error; err != nil {
				return err
			}
			if namesakes == 0 {
				if err := tx.Model(&models.Reading{}).
					Where(idCol+" IS NULL AND "+nameCol+" = ?", oldName).
					UpdateColumn(nameCol, newName).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	return translate("rename person", err)
}

func (s *Store) UpdatePersonGroup(ctx context.Context, id uint, groupNumber int) error {
	res := s.db.WithContext(ctx).Model(&models.Person{}).Where("id = ?", id).Update("group_number", groupNumber)
	if res.Error != nil {
		return translate("update person group", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update person group: %w", storage.ErrNotFound)
	}
	return nil
}

func (s *Store) SetAdmin(ctx context.Context, id uint, isAdmin bool) error {
	res := s.db.WithContext(ctx).Model(&models.Person{}).Where("id = ?", id).Update("is_admin", isAdmin)
	if res.Error != nil {
		return translate("set admin", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("set admin: %w", storage.ErrNotFound)
	}
	return nil
}

func (s *Store) LinkChat(ctx context.Context, id uint, chatID string, username *string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owner models.Person
		err := tx.Where("telegram_chat_id = ?", chatID).First(&owner).Error
		switch {
		case err == nil && owner.ID != id:
			return gorm.ErrDuplicatedKey
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		updates := map[string]any{"telegram_chat_id": chatID}
		if username != nil {
			updates["telegram_username"] = *username
		}
		res := tx.Model(&models.Person{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	return translate("link chat", err)
}

func (s *Store) DeletePerson(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Person
		if err := tx.First(&p, id).Error; err != nil {
			return err
		}

		cond := tx.Session(&gorm.Session{NewDB: true})
		for pos := 1; pos <= models.SlotCount; pos++ {
			idCol, nameCol, _, _ := models.SlotColumns(pos)
			cond = cond.Or(idCol+" = ?", id).Or(idCol+" IS NULL AND "+nameCol+" = ?", p.Name)
		}
		if err := tx.Where(cond).Delete(&models.Reading{}).Error; err != nil {
			return err
		}
		return tx.Delete(&p).Error
	})
	return translate("delete person", err)
}
