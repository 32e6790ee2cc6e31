package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// SpecMap holds the structured key/value specification block of a product.
// Persisted as a JSON document in a text column so it works the same on
// postgres and the sqlite test driver.
type SpecMap map[string]string

func (m SpecMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *SpecMap) Scan(src interface{}) error {
	if src == nil {
		*m = SpecMap{}
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into SpecMap", src)
	}
	if len(data) == 0 {
		*m = SpecMap{}
		return nil
	}
	return json.Unmarshal(data, m)
}

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string    `gorm:"uniqueIndex;not null"     json:"username"`
	Email        string    `gorm:"uniqueIndex;not null"     json:"email"`
	PasswordHash string    `gorm:"not null"                 json:"-"`
	IsAdmin      bool      `gorm:"not null;default:false"   json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Category struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"not null"                 json:"name"`
	Slug        string    `gorm:"uniqueIndex;not null"     json:"slug"`
	Description string    `gorm:"type:text"                json:"description"`
	Image       string    `json:"image"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Filled by the category listing, not a column.
	ProductCount int64 `gorm:"-" json:"product_count"`
}

type Product struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name           string    `gorm:"not null;index"           json:"name"`
	Slug           string    `gorm:"uniqueIndex;not null"     json:"slug"`
	Model          string    `json:"model"`
	Description    string    `gorm:"type:text"                json:"description"`
	Features       string    `gorm:"type:text"                json:"features"`
	Specifications SpecMap   `gorm:"type:text"                json:"specifications"`
	Price          *float64  `json:"price"`
	CategoryID     *uint     `gorm:"index"                    json:"category_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	Category *Category      `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Images   []ProductImage `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"images"`
}

type ProductImage struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID uint      `gorm:"index;not null"           json:"product_id"`
	Path      string    `gorm:"not null"                 json:"path"`
	IsPrimary bool      `gorm:"not null;default:false"   json:"is_primary"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	MessageStatusUnread = "unread"
	MessageStatusRead   = "read"
)

type ContactMessage struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"  json:"id"`
	Name      string    `gorm:"not null"                  json:"name"`
	Email     string    `gorm:"not null;index"            json:"email"`
	Phone     string    `json:"phone"`
	Subject   string    `gorm:"not null"                  json:"subject"`
	Message   string    `gorm:"type:text;not null"        json:"message"`
	Status    string    `gorm:"not null;default:'unread'" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
