package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildDialector(t *testing.T) {
	for _, d := range []string{"sqlite", "postgres", "mysql", "sqlserver"} {
		dial, err := buildDialector(d, "")
		assert.NoError(t, err, d)
		assert.NotNil(t, dial, d)
		assert.True(t, IsSQL(d))
	}

	_, err := buildDialector("mongo", "")
	assert.Error(t, err)
	assert.False(t, IsSQL("memory"))
}
