package domain

import (
	"fmt"
	"strings"
)

// ValidateVehicleRecord checks the fields a record needs to be resolvable.
func ValidateVehicleRecord(v VehicleRecord) error {
	if v.Plate == "" {
		return NewValidationError("plate", v.Plate, ErrInvalidRecord)
	}
	if strings.TrimSpace(v.Owner.Phone) == "" {
		return NewValidationError("owner.phone", v.Owner.Phone, ErrInvalidRecord)
	}
	return nil
}

// ValidateRecordSet validates every record and rejects duplicate plates.
func ValidateRecordSet(records []VehicleRecord) error {
	seen := make(map[string]int, len(records))
	for i, r := range records {
		if err := ValidateVehicleRecord(r); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		if j, ok := seen[r.Plate]; ok {
			return fmt.Errorf("records %d and %d: %w", j, i, NewValidationError("plate", r.Plate, ErrDuplicatePlate))
		}
		seen[r.Plate] = i
	}
	return nil
}

// ValidateProtocol checks that p is a supported channel kind.
func ValidateProtocol(p Protocol) error {
	if !ValidProtocols[p] {
		return NewValidationError("protocol", string(p), ErrInvalidProtocol)
	}
	return nil
}

// ValidateEventRecord checks that a record names both a bucket and a key.
func ValidateEventRecord(r StorageEventRecord) error {
	return ValidateImageRef(r.ImageRef())
}

// ValidateImageRef checks that ref names both a bucket and a key. Field
// names follow the event record the reference came from.
func ValidateImageRef(ref ImageRef) error {
	if ref.Bucket == "" {
		return NewValidationError("s3.bucket.name", "", ErrInvalidEvent)
	}
	if ref.Key == "" {
		return NewValidationError("s3.object.key", "", ErrInvalidEvent)
	}
	return nil
}
