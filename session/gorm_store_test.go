package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/BaSui01/teamflow/types"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestGormStore(t *testing.T) Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	s, err := NewGormStore(db, allowAllButForbidden{})
	require.NoError(t, err)
	return s
}

func TestGormStore(t *testing.T) {
	runStoreSuite(t, newTestGormStore)
}

func TestGormStore_SeqAssignment(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	s, err := NewGormStore(db, nil)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	_, err = s.GetOrCreate(ctx, "conv", "team", "Solo")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := s.AppendTurn(ctx, "conv", types.NewUserTurn(fmt.Sprintf("msg-%d", i)))
		require.NoError(t, err)
	}

	var rows []turnRow
	require.NoError(t, db.Order("seq ASC").Find(&rows).Error)
	require.Len(t, rows, 3)
	for i, r := range rows {
		assert.Equal(t, i, r.Seq)
	}
}
