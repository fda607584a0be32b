package engine

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// KeyValue is the single-key part of Storage that Values needs.
type KeyValue interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Values provides typed reads and writes over a Storage or a Batch. Missing
// keys read as the zero value with ok=false.
type Values struct {
	Storage KeyValue
}

// Batch is an in-memory KeyValue. StateRepository decodes a loaded snapshot
// through it and collects writes for a single Storage.Save.
type Batch map[string]string

func (b Batch) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := b[key]
	return v, ok, nil
}

func (b Batch) Set(_ context.Context, key, value string) error {
	b[key] = value
	return nil
}

func (v Values) Bool(ctx context.Context, key string) (bool, bool, error) {
	raw, ok, err := v.Storage.Get(ctx, key)
	if err != nil || !ok {
		return false, ok, err
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, true, fmt.Errorf("decode %s: %w", key, err)
	}
	return b, true, nil
}

func (v Values) String(ctx context.Context, key string) (string, bool, error) {
	return v.Storage.Get(ctx, key)
}

func (v Values) Int(ctx context.Context, key string) (int64, bool, error) {
	raw, ok, err := v.Storage.Get(ctx, key)
	if err != nil || !ok {
		return 0, ok, err
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, true, fmt.Errorf("decode %s: %w", key, err)
	}
	return n, true, nil
}

func (v Values) Time(ctx context.Context, key string) (time.Time, bool, error) {
	raw, ok, err := v.Storage.Get(ctx, key)
	if err != nil || !ok {
		return time.Time{}, ok, err
	}
	t, err := DecodeTime(raw)
	if err != nil {
		return time.Time{}, true, fmt.Errorf("decode %s: %w", key, err)
	}
	return t, true, nil
}

func (v Values) SetBool(ctx context.Context, key string, b bool) error {
	return v.Storage.Set(ctx, key, EncodeBool(b))
}

func (v Values) SetString(ctx context.Context, key, s string) error {
	return v.Storage.Set(ctx, key, s)
}

func (v Values) SetInt(ctx context.Context, key string, n int64) error {
	return v.Storage.Set(ctx, key, strconv.FormatInt(n, 10))
}

func (v Values) SetTime(ctx context.Context, key string, t time.Time) error {
	return v.Storage.Set(ctx, key, EncodeTime(t))
}

func EncodeBool(b bool) string { return strconv.FormatBool(b) }

// EncodeTime formats t as RFC 3339 with nanoseconds in UTC.
func EncodeTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func DecodeTime(s string) (time.Time, error) { return time.Parse(time.RFC3339Nano, s) }
