package actions

import (
	"errors"
	"time"
)

// Action is a named, invokable operation on a logical entity type. The
// (table_name, action_name) pair is its identity and never changes once
// grants or audit entries reference it; display metadata stays editable.
type Action struct {
	ID               int64     `json:"id"`
	TableName        string    `json:"table_name"`
	ActionName       string    `json:"action_name"`
	RPCReference     string    `json:"rpc_reference"`
	Label            string    `json:"label"`
	ConfirmationText string    `json:"confirmation_text"`
	ConditionExpr    string    `json:"condition_expr"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

var (
	// ErrNotFound indicates that the requested action does not exist.
	ErrNotFound = errors.New("actions: not found")
	// ErrDuplicate indicates a (table, action) identity collision.
	ErrDuplicate = errors.New("actions: duplicate action")
)
