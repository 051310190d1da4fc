package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"nexa-dashboard/internal/storage"
)

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type collection struct {
	db   *sql.DB
	name string
}

func (c *collection) check() error {
	if !storage.KnownCollection(c.name) {
		return fmt.Errorf("%w: %s", storage.ErrUnknownCollection, c.name)
	}
	return nil
}

func (c *collection) FindOne(ctx context.Context, filter storage.Filter) (storage.Document, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	_, body, err := c.findOne(ctx, c.db, filter)
	if err != nil {
		return nil, err
	}
	return storage.Document(body), nil
}

func (c *collection) Find(ctx context.Context, filter storage.Filter) ([]storage.Document, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	where, args, err := whereClause(filter)
	if err != nil {
		return nil, err
	}

	rows, err := c.db.QueryContext(ctx, "SELECT body FROM "+c.name+where+" ORDER BY rowid", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []storage.Document{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		docs = append(docs, storage.Document(body))
	}
	return docs, rows.Err()
}

func (c *collection) Insert(ctx context.Context, doc any) (string, error) {
	if err := c.check(); err != nil {
		return "", err
	}
	body, err := storage.NormalizeMap(doc)
	if err != nil {
		return "", err
	}
	id, _ := body["_id"].(string)
	if id == "" {
		id = storage.NewID()
		body["_id"] = id
	}
	if err := c.insert(ctx, c.db, id, body); err != nil {
		return "", err
	}
	return id, nil
}

func (c *collection) FindOneAndSet(ctx context.Context, filter storage.Filter, update storage.Update, upsert bool) (storage.Document, error) {
	if err := c.check(); err != nil {
		return nil, err
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var doc map[string]any
	id, body, err := c.findOne(ctx, tx, filter)
	switch {
	case err == nil:
		if doc, err = storage.DecodeMap(storage.Document(body)); err != nil {
			return nil, err
		}
		if err := storage.ApplyUpdate(doc, update, false); err != nil {
			return nil, err
		}
		if err := c.replace(ctx, tx, id, doc); err != nil {
			return nil, err
		}
	case errors.Is(err, storage.ErrNotFound) && upsert:
		if doc, err = storage.NewFromFilter(filter); err != nil {
			return nil, err
		}
		if err := storage.ApplyUpdate(doc, update, true); err != nil {
			return nil, err
		}
		id = storage.NewID()
		doc["_id"] = id
		if err := c.insert(ctx, tx, id, doc); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return storage.Document(data), nil
}

func (c *collection) UpdateByID(ctx context.Context, id string, update storage.Update) error {
	if err := c.check(); err != nil {
		return err
	}
	if !storage.ValidID(id) {
		return fmt.Errorf("%w: %q", storage.ErrInvalidID, id)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, body, err := c.findOne(ctx, tx, storage.Filter{"_id": id})
	if err != nil {
		return err
	}
	doc, err := storage.DecodeMap(storage.Document(body))
	if err != nil {
		return err
	}
	if err := storage.ApplyUpdate(doc, update, false); err != nil {
		return err
	}
	if err := c.replace(ctx, tx, id, doc); err != nil {
		return err
	}
	return tx.Commit()
}

func (c *collection) DeleteByID(ctx context.Context, id string) error {
	if err := c.check(); err != nil {
		return err
	}
	if !storage.ValidID(id) {
		return fmt.Errorf("%w: %q", storage.ErrInvalidID, id)
	}
	result, err := c.db.ExecContext(ctx, "DELETE FROM "+c.name+" WHERE id = ?", id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (c *collection) DeleteMany(ctx context.Context, filter storage.Filter) (int64, error) {
	if err := c.check(); err != nil {
		return 0, err
	}
	where, args, err := whereClause(filter)
	if err != nil {
		return 0, err
	}
	result, err := c.db.ExecContext(ctx, "DELETE FROM "+c.name+where, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (c *collection) findOne(ctx context.Context, q queryer, filter storage.Filter) (string, string, error) {
	where, args, err := whereClause(filter)
	if err != nil {
		return "", "", err
	}
	row := q.QueryRowContext(ctx, "SELECT id, body FROM "+c.name+where+" ORDER BY rowid LIMIT 1", args...)

	var id, body string
	if err := row.Scan(&id, &body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", "", storage.ErrNotFound
		}
		return "", "", err
	}
	return id, body, nil
}

func (c *collection) insert(ctx context.Context, q queryer, id string, body map[string]any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, "INSERT INTO "+c.name+" (id, body) VALUES (?, ?)", id, string(data))
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", storage.ErrDuplicateKey, c.name)
	}
	return err
}

func (c *collection) replace(ctx context.Context, q queryer, id string, body map[string]any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, "UPDATE "+c.name+" SET body = ? WHERE id = ?", string(data), id)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", storage.ErrDuplicateKey, c.name)
	}
	return err
}

func whereClause(filter storage.Filter) (string, []any, error) {
	if len(filter) == 0 {
		return "", nil, nil
	}

	keys := make([]string, 0, len(filter))
	for key := range filter {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	clauses := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys)*2)
	for _, key := range keys {
		if !storage.ValidKey(key) {
			return "", nil, fmt.Errorf("%w: %q", storage.ErrInvalidKey, key)
		}
		value := filter[key]
		if bounds, ok := value.(storage.Range); ok {
			if bounds.Gte != nil {
				clause, arg := compare(key, ">=", bounds.Gte)
				clauses = append(clauses, clause)
				args = append(args, "$."+key, arg)
			}
			if bounds.Lt != nil {
				clause, arg := compare(key, "<", bounds.Lt)
				clauses = append(clauses, clause)
				args = append(args, "$."+key, arg)
			}
			continue
		}
		if key == "_id" {
			clauses = append(clauses, "id = ?")
			args = append(args, value)
			continue
		}
		// json_extract yields 1/0 for JSON booleans
		if b, ok := value.(bool); ok {
			value = boolToInt(b)
		}
		clauses = append(clauses, "json_extract(body, ?) = ?")
		args = append(args, "$."+key, value)
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

// compare builds a range clause. Times are stored as RFC 3339 strings whose
// fraction length varies, so they are compared through julianday.
func compare(key, op string, bound any) (string, any) {
	if at, ok := bound.(time.Time); ok {
		return "julianday(json_extract(body, ?)) " + op + " julianday(?)", at.UTC().Format(time.RFC3339Nano)
	}
	return "json_extract(body, ?) " + op + " ?", bound
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
