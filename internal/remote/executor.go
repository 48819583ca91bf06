package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/thanhnguyendafa-ux/git-vmind-gg-3-sub002/internal/models"
)

// ErrBadPayload marks a mutation whose payload cannot be decoded or encoded.
// Retrying cannot fix it, so the classifier treats it as fatal.
var ErrBadPayload = errors.New("malformed mutation payload")

// ErrUnhandledKind marks a kind tag with no registered handler.
var ErrUnhandledKind = errors.New("no handler for mutation kind")

type handlerFunc func(ctx context.Context, payload json.RawMessage) error

// Executor maps each mutation kind to its remote call. Adding a kind means
// adding a payload type and one table entry.
type Executor struct {
	client   *Client
	handlers map[models.MutationKind]handlerFunc
}

func NewExecutor(client *Client) *Executor {
	e := &Executor{client: client}
	e.handlers = map[models.MutationKind]handlerFunc{
		models.KindUpsertRow:    e.upsertRow,
		models.KindDeleteRow:    e.deleteRow,
		models.KindUpsertTable:  e.upsertTable,
		models.KindDeleteTable:  e.deleteTable,
		models.KindUpsertFolder: e.upsertFolder,
		models.KindDeleteFolder: e.deleteFolder,
		models.KindSaveStats:    e.saveStats,
		models.KindSaveSettings: e.saveSettings,
	}
	return e
}

func (e *Executor) Execute(ctx context.Context, m *models.Mutation) error {
	handler, ok := e.handlers[m.Kind]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnhandledKind, m.Kind)
	}
	return handler(ctx, m.Payload)
}

func decode[T any](payload json.RawMessage) (T, error) {
	var v T
	if err := json.Unmarshal(payload, &v); err != nil {
		return v, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return v, nil
}

func (e *Executor) upsertRow(ctx context.Context, payload json.RawMessage) error {
	p, err := decode[RowPayload](payload)
	if err != nil {
		return err
	}
	if p.RowID == "" || p.TableID == "" {
		return fmt.Errorf("%w: rowId and tableId are required", ErrBadPayload)
	}
	path := fmt.Sprintf("/api/v1/tables/%s/rows/%s", p.TableID, p.RowID)
	return e.client.do(ctx, http.MethodPut, path, p)
}

func (e *Executor) deleteRow(ctx context.Context, payload json.RawMessage) error {
	p, err := decode[RowPayload](payload)
	if err != nil {
		return err
	}
	if p.RowID == "" || p.TableID == "" {
		return fmt.Errorf("%w: rowId and tableId are required", ErrBadPayload)
	}
	path := fmt.Sprintf("/api/v1/tables/%s/rows/%s", p.TableID, p.RowID)
	return e.client.do(ctx, http.MethodDelete, path, nil)
}

func (e *Executor) upsertTable(ctx context.Context, payload json.RawMessage) error {
	p, err := decode[TablePayload](payload)
	if err != nil {
		return err
	}
	if p.TableID == "" {
		return fmt.Errorf("%w: tableId is required", ErrBadPayload)
	}
	return e.client.do(ctx, http.MethodPut, "/api/v1/tables/"+p.TableID, p)
}

func (e *Executor) deleteTable(ctx context.Context, payload json.RawMessage) error {
	p, err := decode[TablePayload](payload)
	if err != nil {
		return err
	}
	if p.TableID == "" {
		return fmt.Errorf("%w: tableId is required", ErrBadPayload)
	}
	return e.client.do(ctx, http.MethodDelete, "/api/v1/tables/"+p.TableID, nil)
}

func (e *Executor) upsertFolder(ctx context.Context, payload json.RawMessage) error {
	p, err := decode[FolderPayload](payload)
	if err != nil {
		return err
	}
	if p.FolderID == "" {
		return fmt.Errorf("%w: folderId is required", ErrBadPayload)
	}
	return e.client.do(ctx, http.MethodPut, "/api/v1/folders/"+p.FolderID, p)
}

func (e *Executor) deleteFolder(ctx context.Context, payload json.RawMessage) error {
	p, err := decode[FolderPayload](payload)
	if err != nil {
		return err
	}
	if p.FolderID == "" {
		return fmt.Errorf("%w: folderId is required", ErrBadPayload)
	}
	return e.client.do(ctx, http.MethodDelete, "/api/v1/folders/"+p.FolderID, nil)
}

func (e *Executor) saveStats(ctx context.Context, payload json.RawMessage) error {
	p, err := decode[StatsPayload](payload)
	if err != nil {
		return err
	}
	if p.SessionID == "" {
		return fmt.Errorf("%w: sessionId is required", ErrBadPayload)
	}
	// Sessions are idempotent upserts keyed by session id.
	return e.client.do(ctx, http.MethodPut, "/api/v1/sessions/"+p.SessionID, p)
}

func (e *Executor) saveSettings(ctx context.Context, payload json.RawMessage) error {
	p, err := decode[SettingsPayload](payload)
	if err != nil {
		return err
	}
	return e.client.do(ctx, http.MethodPut, "/api/v1/settings", p)
}
