package mongo

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// StringValue renders scalar BSON values as their decimal or textual form.
// Audit documents store identifiers as either strings or numbers.
func StringValue(v bson.RawValue) (string, error) {
	switch v.Type {
	case bson.TypeString:
		return v.StringValue(), nil
	case bson.TypeInt32:
		return strconv.FormatInt(int64(v.Int32()), 10), nil
	case bson.TypeInt64:
		return strconv.FormatInt(v.Int64(), 10), nil
	case bson.TypeDouble:
		f := v.Double()
		if f == math.Trunc(f) && !math.IsInf(f, 0) {
			return strconv.FormatFloat(f, 'f', 0, 64), nil
		}
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	case bson.TypeDecimal128:
		return v.Decimal128().String(), nil
	case bson.TypeObjectID:
		return v.ObjectID().Hex(), nil
	case 0, bson.TypeNull, bson.TypeUndefined:
		return "", nil
	default:
		return "", fmt.Errorf("mongo: unsupported %s value for string", v.Type)
	}
}

// Int64Value reads integral BSON numbers. Doubles must carry no fraction.
func Int64Value(v bson.RawValue) (int64, error) {
	switch v.Type {
	case bson.TypeInt32:
		return int64(v.Int32()), nil
	case bson.TypeInt64:
		return v.Int64(), nil
	case bson.TypeDouble:
		f := v.Double()
		if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
			return 0, fmt.Errorf("mongo: non-integral number %v", f)
		}
		return int64(f), nil
	case bson.TypeString:
		n, err := strconv.ParseInt(v.StringValue(), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("mongo: %q is not an integer: %w", v.StringValue(), err)
		}
		return n, nil
	case 0, bson.TypeNull, bson.TypeUndefined:
		return 0, nil
	default:
		return 0, fmt.Errorf("mongo: unsupported %s value for integer", v.Type)
	}
}

// TimeValue reads BSON datetimes as UTC. Strings are accepted in RFC 3339.
func TimeValue(v bson.RawValue) (time.Time, error) {
	switch v.Type {
	case bson.TypeDateTime:
		return time.UnixMilli(v.DateTime()).UTC(), nil
	case bson.TypeString:
		t, err := time.Parse(time.RFC3339, v.StringValue())
		if err != nil {
			return time.Time{}, fmt.Errorf("mongo: %q is not a timestamp: %w", v.StringValue(), err)
		}
		return t.UTC(), nil
	case 0, bson.TypeNull, bson.TypeUndefined:
		return time.Time{}, nil
	default:
		return time.Time{}, fmt.Errorf("mongo: unsupported %s value for time", v.Type)
	}
}
