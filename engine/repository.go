package engine

import (
	"context"
	"fmt"

	"reviewkit/core"
)

// StateRepository maps core.ReviewState onto storage keys, optionally scoped
// to an installation namespace.
type StateRepository struct {
	storage   Storage
	namespace string
}

func NewStateRepository(storage Storage, namespace string) *StateRepository {
	return &StateRepository{storage: storage, namespace: namespace}
}

func (r *StateRepository) key(k string) string { return core.NamespacedKey(r.namespace, k) }

// Load reads the state. Missing keys decode as zero values.
func (r *StateRepository) Load(ctx context.Context) (core.ReviewState, error) {
	keys := make([]string, len(core.StateKeys))
	for i, k := range core.StateKeys {
		keys[i] = r.key(k)
	}
	raw, err := r.storage.Load(ctx, keys...)
	if err != nil {
		return core.ReviewState{}, fmt.Errorf("load review state: %w", err)
	}

	v := Values{Storage: Batch(raw)}
	var st core.ReviewState
	if st.IsFirstUse, _, err = v.Bool(ctx, r.key(core.KeyFirstUse)); err != nil {
		return core.ReviewState{}, fmt.Errorf("decode review state: %w", err)
	}
	if st.Reviewed, _, err = v.Bool(ctx, r.key(core.KeyReviewed)); err != nil {
		return core.ReviewState{}, fmt.Errorf("decode review state: %w", err)
	}
	if st.DevelopmentMode, _, err = v.Bool(ctx, r.key(core.KeyDevelopmentMode)); err != nil {
		return core.ReviewState{}, fmt.Errorf("decode review state: %w", err)
	}
	first, _, err := v.Int(ctx, r.key(core.KeyDaysUntilRequest))
	if err != nil {
		return core.ReviewState{}, fmt.Errorf("decode review state: %w", err)
	}
	remember, _, err := v.Int(ctx, r.key(core.KeyDaysUntilRemember))
	if err != nil {
		return core.ReviewState{}, fmt.Errorf("decode review state: %w", err)
	}
	st.DaysUntilFirstRequest, st.DaysUntilRemember = int(first), int(remember)
	if st.LastReminder, _, err = v.Time(ctx, r.key(core.KeyLastReminded)); err != nil {
		return core.ReviewState{}, fmt.Errorf("decode review state: %w", err)
	}
	return st, nil
}

// Save writes every state field in a single storage call, merged with extra
// (already un-namespaced) values.
func (r *StateRepository) Save(ctx context.Context, st core.ReviewState, extra map[string]string) error {
	values := Batch{}
	v := Values{Storage: values}
	// Batch writes cannot fail.
	if st.HasReminder() {
		_ = v.SetTime(ctx, r.key(core.KeyLastReminded), st.LastReminder)
	}
	_ = v.SetBool(ctx, r.key(core.KeyFirstUse), st.IsFirstUse)
	_ = v.SetBool(ctx, r.key(core.KeyReviewed), st.Reviewed)
	_ = v.SetBool(ctx, r.key(core.KeyDevelopmentMode), st.DevelopmentMode)
	_ = v.SetInt(ctx, r.key(core.KeyDaysUntilRequest), int64(st.DaysUntilFirstRequest))
	_ = v.SetInt(ctx, r.key(core.KeyDaysUntilRemember), int64(st.DaysUntilRemember))
	for k, val := range extra {
		_ = v.SetString(ctx, r.key(k), val)
	}
	if err := r.storage.Save(ctx, values); err != nil {
		return fmt.Errorf("save review state: %w", err)
	}
	return nil
}

// Value reads one un-namespaced key.
func (r *StateRepository) Value(ctx context.Context, key string) (string, bool, error) {
	return r.storage.Get(ctx, r.key(key))
}

// Clear removes every key owned by the repository.
func (r *StateRepository) Clear(ctx context.Context) error {
	keys := make([]string, len(core.StateKeys))
	for i, k := range core.StateKeys {
		keys[i] = r.key(k)
	}
	if err := r.storage.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("clear review state: %w", err)
	}
	return nil
}
