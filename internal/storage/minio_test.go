package storage

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicReadPolicy(t *testing.T) {
	raw, err := publicReadPolicy("taskboard", ImageDir)
	require.NoError(t, err)

	var doc bucketPolicy
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))

	assert.Equal(t, "2012-10-17", doc.Version)
	require.Len(t, doc.Statement, 1)
	st := doc.Statement[0]
	assert.Equal(t, "Allow", st.Effect)
	assert.Equal(t, []string{"*"}, st.Principal["AWS"])
	assert.Equal(t, []string{"s3:GetObject"}, st.Action)
	assert.Equal(t, []string{"arn:aws:s3:::taskboard/images/*"}, st.Resource)
}
