package record_test

import (
	"testing"
	"time"

	"github.com/agentstation/utc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/driftsync/pkg/errors"
	"github.com/agentstation/driftsync/pkg/record"
)

func TestNewDerivesFingerprint(t *testing.T) {
	r, err := record.New("1", record.Payload{"name": "Ion Popescu", "age": 30})
	require.NoError(t, err)

	assert.Equal(t, record.Key("1"), r.Key)
	assert.Len(t, r.Fingerprint, 64) // sha256 hex
	assert.NotEmpty(t, r.Payload)
}

func TestFingerprintDeterminism(t *testing.T) {
	// Same fields inserted in different orders must hash identically.
	a := record.Payload{}
	a["name"] = "Maria"
	a["email"] = "maria@gmail.com"
	a["phone"] = "0798765432"

	b := record.Payload{}
	b["phone"] = "0798765432"
	b["email"] = "maria@gmail.com"
	b["name"] = "Maria"

	ra, err := record.New("2", a)
	require.NoError(t, err)
	rb, err := record.New("2", b)
	require.NoError(t, err)

	assert.Equal(t, ra.Fingerprint, rb.Fingerprint)
	assert.True(t, ra.Equal(rb))

	// Recomputing from the same payload is stable.
	rc, err := record.New("2", a)
	require.NoError(t, err)
	assert.Equal(t, ra.Fingerprint, rc.Fingerprint)
}

func TestFingerprintNormalizesNumericTypes(t *testing.T) {
	// An int from a SQL row and a float64 from decoded JSON are the same value.
	fromSQL, err := record.New("ORD-001", record.Payload{"amount": int64(150)})
	require.NoError(t, err)
	fromJSON, err := record.New("ORD-001", record.Payload{"amount": float64(150)})
	require.NoError(t, err)

	assert.Equal(t, fromSQL.Fingerprint, fromJSON.Fingerprint)
}

func TestFingerprintDiffersOnContent(t *testing.T) {
	a, err := record.New("1", record.Payload{"age": 30})
	require.NoError(t, err)
	b, err := record.New("1", record.Payload{"age": 31})
	require.NoError(t, err)

	assert.NotEqual(t, a.Fingerprint, b.Fingerprint)
	assert.False(t, a.Equal(b))
}

func TestNewRejectsMalformedRecords(t *testing.T) {
	_, err := record.New("", record.Payload{"x": 1})
	assert.True(t, errors.IsMalformedRecord(err))

	_, err = record.New("1", nil)
	assert.True(t, errors.IsMalformedRecord(err))
}

func TestChangedFields(t *testing.T) {
	a, err := record.New("1", record.Payload{
		"name":  "Ion Popescu",
		"email": "ion@email.com",
		"phone": "0712345678",
	})
	require.NoError(t, err)

	b, err := record.New("1", record.Payload{
		"name":       "Ion Popescu",
		"email":      "ion.popescu@company.com", // changed
		"phone":      "0712345678",
		"department": "IT", // only on one side
	})
	require.NoError(t, err)

	changed := a.ChangedFields(b)
	assert.Equal(t, []string{"department", "email"}, changed)

	// Symmetric.
	assert.Equal(t, changed, b.ChangedFields(a))
}

func TestChangedFieldsEmptyForEqualPayloads(t *testing.T) {
	a, err := record.New("1", record.Payload{"age": 30})
	require.NoError(t, err)
	b, err := record.New("1", record.Payload{"age": 30})
	require.NoError(t, err)

	assert.Empty(t, a.ChangedFields(b))
}

func TestNewModified(t *testing.T) {
	stamp := utc.New(time.Date(2023, 12, 1, 16, 20, 0, 0, time.UTC))
	r, err := record.NewModified("1", record.Payload{"age": 30}, stamp)
	require.NoError(t, err)

	assert.True(t, r.Modified.Equal(stamp))

	// Modified timestamp never affects the fingerprint.
	plain, err := record.New("1", record.Payload{"age": 30})
	require.NoError(t, err)
	assert.Equal(t, plain.Fingerprint, r.Fingerprint)
}

func TestPayloadFieldsSorted(t *testing.T) {
	p := record.Payload{"zeta": 1, "alpha": 2, "mid": 3}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, p.Fields())
}
