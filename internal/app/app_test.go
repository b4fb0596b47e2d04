package app

import (
	"errors"
	"testing"

	"go.uber.org/zap"
)

type fakePool struct {
	closed int
	err    error
}

func (f *fakePool) Close() error {
	f.closed++
	return f.err
}

func TestMigrateOrClose(t *testing.T) {
	tests := []struct {
		name       string
		migrateErr error
		closeErr   error
		wantClosed int
	}{
		{"迁移成功不关闭", nil, nil, 0},
		{"迁移失败关闭连接池", errors.New("dirty database version 3"), nil, 1},
		{"关闭失败仍返回迁移错误", errors.New("dirty database version 3"), errors.New("already closed"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := &fakePool{err: tt.closeErr}
			err := migrateOrClose(pool, func() error { return tt.migrateErr }, zap.NewNop())

			if !errors.Is(err, tt.migrateErr) || (tt.migrateErr == nil) != (err == nil) {
				t.Errorf("期望错误 %v，实际: %v", tt.migrateErr, err)
			}
			if pool.closed != tt.wantClosed {
				t.Errorf("期望关闭 %d 次，实际 %d", tt.wantClosed, pool.closed)
			}
		})
	}
}
