package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TimeSlot is the screening window of a session within its day
type TimeSlot string

const (
	TimeSlot1 TimeSlot = "SLOT_1" // 10:00-12:00
	TimeSlot2 TimeSlot = "SLOT_2" // 12:00-14:00
	TimeSlot3 TimeSlot = "SLOT_3" // 14:00-16:00
	TimeSlot4 TimeSlot = "SLOT_4" // 16:00-18:00
	TimeSlot5 TimeSlot = "SLOT_5" // 18:00-20:00
	TimeSlot6 TimeSlot = "SLOT_6" // 20:00-22:00
)

// Movie is a catalog entry. CreatedByID is the admin that published it and
// serves as the movie's owner for ownership-scoped rules.
type Movie struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	Description string    `gorm:"type:text;not null" json:"description"`
	MinAge      int       `gorm:"not null;default:0" json:"min_age"`
	CreatedByID *uint     `gorm:"index" json:"created_by_id"`
	Sessions    []Session `gorm:"foreignKey:MovieID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"sessions"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (m Movie) OwnerID() (uint, bool) {
	if m.CreatedByID == nil {
		return 0, false
	}
	return *m.CreatedByID, true
}

// Session is a scheduled screening with a fixed pool of tickets, one per seat.
type Session struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	MovieID     uint            `gorm:"not null;index" json:"movie_id"`
	Movie       *Movie          `gorm:"foreignKey:MovieID" json:"-"`
	RoomNumber  int             `gorm:"not null" json:"room_number"`
	Date        time.Time       `gorm:"not null" json:"date"`
	TimeSlot    TimeSlot        `gorm:"type:varchar(20);not null" json:"time_slot"`
	TicketPrice decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"ticket_price"`
	Tickets     []Ticket        `gorm:"foreignKey:SessionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// NewTicketPool returns capacity fresh tickets: unowned and unused.
func NewTicketPool(capacity int) []Ticket {
	return make([]Ticket, capacity)
}
