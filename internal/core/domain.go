package core

import (
	"errors"
	"strconv"
	"strings"
)

// Ledger column names. Readers match columns by header name, never by
// position; an owner column may be missing on data that predates
// multi-tenancy.
const (
	ColDate     = "date"
	ColName     = "name"
	ColQuantity = "quantity"
	ColCategory = "category"
	ColAmount   = "amount"
	ColOwner    = "owner"
)

// LedgerHeader is the full column set written when a sheet is bootstrapped.
var LedgerHeader = []string{ColDate, ColName, ColQuantity, ColCategory, ColAmount, ColOwner}

// PlaceholderCategory is the category stamped on the blank row emitted when
// extraction yields nothing usable.
const PlaceholderCategory = "Other"

var (
	ErrInvalidDate        = errors.New("invalid date")
	ErrEmptyName          = errors.New("empty item name")
	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyOwner         = errors.New("empty owner")
	ErrNothingToSave      = errors.New("nothing to save")
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrNotFound           = errors.New("not found")
	ErrDuplicateUsername  = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrExtractionFailed   = errors.New("extraction failed")
	ErrPartialPurge       = errors.New("partial purge")
)

type (
	// RawRow is one stored ledger row as a bag of named fields. The store
	// never enforces LineItem invariants; decoding does.
	RawRow map[string]string

	// LineItem is one validated purchased item on one receipt. Amounts are
	// whole currency units, never fractional.
	LineItem struct {
		Date     Date
		Name     string
		Quantity int64
		Category string
		Amount   int64
		Owner    string
	}

	// User is one credential record. Username uniqueness is
	// case-insensitive; Avatar is an opaque base64 blob.
	User struct {
		Username       string
		HashedPassword string
		Avatar         string
	}
)

func (li LineItem) Validate() error {
	if err := li.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(li.Name) == "" {
		return ErrEmptyName
	}
	if li.Quantity < 1 {
		return ErrInvalidQuantity
	}
	if li.Amount < 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(li.Owner) == "" {
		return ErrEmptyOwner
	}
	return nil
}

// Key returns the identity tuple used for duplicate detection: date, name,
// quantity, amount and owner, with trimmed strings. Category is not part of
// the identity.
func (li LineItem) Key() string {
	return strings.Join([]string{
		li.Date.String(),
		strings.TrimSpace(li.Name),
		strconv.FormatInt(li.Quantity, 10),
		strconv.FormatInt(li.Amount, 10),
		strings.TrimSpace(li.Owner),
	}, "\x1f")
}

// Row renders the item in stored-schema order.
func (li LineItem) Row() RawRow {
	return RawRow{
		ColDate:     li.Date.String(),
		ColName:     li.Name,
		ColQuantity: strconv.FormatInt(li.Quantity, 10),
		ColCategory: li.Category,
		ColAmount:   strconv.FormatInt(li.Amount, 10),
		ColOwner:    li.Owner,
	}
}
