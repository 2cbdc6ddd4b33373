package db_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/yigit/vaxportal/internal/db"
)

func TestTxFromContext_Empty(t *testing.T) {
	tx, ok := db.TxFromContext(context.Background())
	assert.False(t, ok)
	assert.Nil(t, tx)
}

func TestContextWithTx_NilTxIsNotReported(t *testing.T) {
	ctx := db.ContextWithTx(context.Background(), nil)
	_, ok := db.TxFromContext(ctx)
	assert.False(t, ok)
}
