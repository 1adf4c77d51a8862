package storage

import (
	"errors"
	"fmt"

	"fleetctl/internal/apperr"
	"fleetctl/internal/domain"

	"gorm.io/gorm"
)

type User struct {
	ID       string `gorm:"primaryKey"`
	Username string `gorm:"uniqueIndex"`
	Password string
	Role     string
}

type Permission struct {
	UserID          string `gorm:"primaryKey"`
	ServerID        string `gorm:"primaryKey"`
	CanViewConsole  bool
	CanControlPower bool
}

type PublicLink struct {
	Token    string `gorm:"primaryKey"`
	ServerID string `gorm:"index"`
	Action   string
}

func (s *GormStore) CreateUser(user *domain.User) error {
	row := User{ID: user.ID, Username: user.Username, Password: user.Password, Role: user.Role}
	return s.db.Create(&row).Error
}

func (s *GormStore) GetUserByUsername(username string) (*domain.User, error) {
	var row User
	result := s.db.First(&row, "username = ?", username)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, fmt.Sprintf("user %q not found", username))
		}
		return nil, result.Error
	}
	return &domain.User{ID: row.ID, Username: row.Username, Password: row.Password, Role: row.Role}, nil
}

func (s *GormStore) GetUserByID(id string) (*domain.User, error) {
	var row User
	result := s.db.First(&row, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, fmt.Sprintf("user %q not found", id))
		}
		return nil, result.Error
	}
	return &domain.User{ID: row.ID, Username: row.Username, Password: row.Password, Role: row.Role}, nil
}

func (s *GormStore) ListUsers() ([]domain.User, error) {
	var rows []User
	if err := s.db.Find(&rows).Error; err != nil {
		return nil, err
	}
	users := make([]domain.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, domain.User{ID: row.ID, Username: row.Username, Password: row.Password, Role: row.Role})
	}
	return users, nil
}

func (s *GormStore) DeleteUser(id string) error {
	result := s.db.Delete(&User{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.New(apperr.NotFound, fmt.Sprintf("user %q not found", id))
	}
	return nil
}

func (s *GormStore) SetPermissions(permissions []domain.Permission) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, p := range permissions {
			row := Permission{
				UserID:          p.UserID,
				ServerID:        p.ServerID,
				CanViewConsole:  p.CanViewConsole,
				CanControlPower: p.CanControlPower,
			}
			if err := tx.Save(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *GormStore) GetPermissions(userID string) ([]domain.Permission, error) {
	var rows []Permission
	if err := s.db.Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, err
	}
	perms := make([]domain.Permission, 0, len(rows))
	for _, row := range rows {
		perms = append(perms, domain.Permission{
			UserID:          row.UserID,
			ServerID:        row.ServerID,
			CanViewConsole:  row.CanViewConsole,
			CanControlPower: row.CanControlPower,
		})
	}
	return perms, nil
}

func (s *GormStore) UpdatePassword(userID string, hashedPassword string) error {
	result := s.db.Model(&User{}).Where("id = ?", userID).Update("password", hashedPassword)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.New(apperr.NotFound, fmt.Sprintf("user %q not found", userID))
	}
	return nil
}

func (s *GormStore) CreatePublicLink(link *domain.PublicLink) error {
	row := PublicLink{Token: link.Token, ServerID: link.ServerID, Action: link.Action}
	return s.db.Create(&row).Error
}

func (s *GormStore) GetPublicLink(token string) (*domain.PublicLink, error) {
	var row PublicLink
	result := s.db.First(&row, "token = ?", token)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "public link not found")
		}
		return nil, result.Error
	}
	return &domain.PublicLink{Token: row.Token, ServerID: row.ServerID, Action: row.Action}, nil
}

func (s *GormStore) GetPublicLinkByServerID(serverID string) (*domain.PublicLink, error) {
	var row PublicLink
	result := s.db.First(&row, "server_id = ?", serverID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "public link not found")
		}
		return nil, result.Error
	}
	return &domain.PublicLink{Token: row.Token, ServerID: row.ServerID, Action: row.Action}, nil
}

func (s *GormStore) DeletePublicLink(token string) error {
	result := s.db.Delete(&PublicLink{}, "token = ?", token)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.New(apperr.NotFound, "public link not found")
	}
	return nil
}
