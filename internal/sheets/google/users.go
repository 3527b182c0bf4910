package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"receiptbook/internal/core"

	gsheet "google.golang.org/api/sheets/v4"
)

const (
	colUsername       = "username"
	colHashedPassword = "hashed_password"
	colAvatar         = "avatar"
)

var usersHeader = []string{colUsername, colHashedPassword, colAvatar}

// ListUsers reads every credential record. The users worksheet is created
// with its header on first use, and the avatar column is self-healed on
// stores that predate it.
func (c *Client) ListUsers(ctx context.Context) ([]core.User, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	if err := c.ensureUsersSheet(ctx); err != nil {
		return nil, err
	}
	values, err := c.readSheet(ctx, c.usersSheet)
	if err != nil {
		return nil, unavailable("load users", err)
	}
	if len(values) < 2 {
		return nil, nil
	}

	headers := toStrings(values[0])
	iUser := indexOf(headers, colUsername)
	iHash := indexOf(headers, colHashedPassword)
	iAvatar := indexOf(headers, colAvatar)

	users := make([]core.User, 0, len(values)-1)
	for _, v := range values[1:] {
		cols := toStrings(v)
		u := core.User{
			Username:       safeGet(cols, iUser),
			HashedPassword: safeGet(cols, iHash),
			Avatar:         safeGet(cols, iAvatar),
		}
		if u.Username == "" {
			continue
		}
		users = append(users, u)
	}
	return users, nil
}

func (c *Client) AppendUser(ctx context.Context, u core.User) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if err := c.ensureUsersSheet(ctx); err != nil {
		return err
	}
	rng := fmt.Sprintf("%s!A:A", c.usersSheet)
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng,
		&gsheet.ValueRange{Values: [][]any{{u.Username, u.HashedPassword, u.Avatar}}}).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return unavailable("append user", err)
	}
	slog.InfoContext(ctx, "User record appended", "sheet", c.usersSheet, "username", u.Username)
	return nil
}

func (c *Client) UpdateUser(ctx context.Context, u core.User) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	rowIdx, err := c.findUserRow(ctx, u.Username)
	if err != nil {
		return err
	}
	// Sheet rows are 1-based and row 1 is the header.
	rng := fmt.Sprintf("%s!A%d:C%d", c.usersSheet, rowIdx+2, rowIdx+2)
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng,
		&gsheet.ValueRange{Values: [][]any{{u.Username, u.HashedPassword, u.Avatar}}}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return unavailable("update user", err)
	}
	return nil
}

func (c *Client) DeleteUser(ctx context.Context, username string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	rowIdx, err := c.findUserRow(ctx, username)
	if err != nil {
		return err
	}
	sheetID, err := c.sheetID(ctx, c.usersSheet)
	if err != nil {
		return unavailable("resolve sheet id", err)
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(rowIdx + 1),
					EndIndex:   int64(rowIdx + 2),
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return unavailable("delete user row", err)
	}
	slog.InfoContext(ctx, "User record deleted", "sheet", c.usersSheet, "username", username)
	return nil
}

// findUserRow returns the zero-based data row index of an exact username
// match, or core.ErrNotFound.
func (c *Client) findUserRow(ctx context.Context, username string) (int, error) {
	users, err := c.ListUsers(ctx)
	if err != nil {
		return 0, err
	}
	for i, u := range users {
		if u.Username == username {
			return i, nil
		}
	}
	return 0, fmt.Errorf("user %q: %w", username, core.ErrNotFound)
}

func (c *Client) ensureUsersSheet(ctx context.Context) error {
	headers, err := c.readHeader(ctx, c.usersSheet)
	if err != nil {
		return unavailable("read users header", err)
	}
	if len(headers) == 0 {
		values := make([]any, len(usersHeader))
		for i, h := range usersHeader {
			values[i] = h
		}
		rng := fmt.Sprintf("%s!A1", c.usersSheet)
		_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng,
			&gsheet.ValueRange{Values: [][]any{values}}).
			ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return unavailable("write users header", err)
		}
		return nil
	}
	// Stores that predate avatars lack the trailing column.
	return c.ensureColumn(ctx, c.usersSheet, colAvatar)
}

func (c *Client) sheetID(ctx context.Context, title string) (int64, error) {
	resp, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, s := range resp.Sheets {
		if s.Properties != nil && s.Properties.Title == title {
			return s.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("worksheet %q not found", title)
}
