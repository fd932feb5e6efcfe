package db_test

import (
	"testing"

	"github.com/gnames/gntree/internal/iodb"
	"github.com/gnames/gntree/pkg/db"
	"github.com/stretchr/testify/assert"
)

func TestNewPgxOperator(t *testing.T) {
	var op db.Operator = iodb.NewPgxOperator()
	assert.Nil(t, op.Pool(), "pool appears only after Connect")
	_, err := op.GORM()
	assert.Error(t, err)
}
