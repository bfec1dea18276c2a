package db

import "time"

type ProfileModel struct {
	Ref          string `gorm:"primaryKey"`
	Status       string `gorm:"index;not null"`
	PublicKey    []byte `gorm:"type:bytea;not null"`
	SigAlg       string `gorm:"not null"`
	Jurisdiction *string
	CreatedAt    time.Time `gorm:"not null"`
}

func (ProfileModel) TableName() string {
	return "profiles"
}

type EscrowRecordModel struct {
	ID        string  `gorm:"primaryKey"`
	Buyer     string  `gorm:"index;not null"`
	Seller    string  `gorm:"index;not null"`
	Amount    uint64  `gorm:"not null"`
	Asset     string  `gorm:"not null"`
	Nullifier *string `gorm:"index"`
	State     string  `gorm:"index;not null"`
	Lock      bool    `gorm:"column:withdrawal_lock;not null"`

	CreatedAt           time.Time `gorm:"not null"`
	AcceptanceDeadline  time.Time `gorm:"not null"`
	FulfillmentDeadline *time.Time
	ClaimDeadline       *time.Time

	RelockCount    int  `gorm:"not null"`
	DiscountIssued bool `gorm:"not null"`
	FinalStatus    *string
	SettledAt      *time.Time
	UpdatedAt      time.Time `gorm:"not null"`
}

func (EscrowRecordModel) TableName() string {
	return "escrow_records"
}

type VerificationAttemptModel struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	RequestID   string `gorm:"index;not null"`
	Approved    bool   `gorm:"index;not null"`
	ErrorCode   *string
	SessionRef  *string   `gorm:"index"`
	VerdictJSON []byte    `gorm:"type:jsonb;not null"`
	CreatedAt   time.Time `gorm:"not null"`
}

func (VerificationAttemptModel) TableName() string {
	return "verification_attempts"
}

type AuditEventModel struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	EventType   string `gorm:"index;not null"`
	TargetID    *string
	Result      string `gorm:"not null"`
	ErrorCode   *string
	PayloadJSON []byte    `gorm:"type:jsonb"`
	CreatedAt   time.Time `gorm:"index;not null"`
}

func (AuditEventModel) TableName() string {
	return "audit_events"
}
