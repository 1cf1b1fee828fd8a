package queue

import (
	"encoding/json"
	"fmt"
)

// StorageEvent identifies one newly stored object. It is the only payload
// crossing the event bus.
type StorageEvent struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// s3EventRecords mirrors the native object-storage notification shape as
// emitted by MinIO/S3 bucket notifications.
type s3EventRecords struct {
	Records []struct {
		S3 struct {
			Bucket struct {
				Name string `json:"name"`
			} `json:"bucket"`
			Object struct {
				Key string `json:"key"`
			} `json:"object"`
		} `json:"s3"`
	} `json:"Records"`
}

// ParseStorageEvent decodes an event body. It accepts either a native
// object-storage event document (the first Records[*].s3 entry is taken) or
// a bare {bucket, key} envelope.
func ParseStorageEvent(body []byte) (StorageEvent, error) {
	var native s3EventRecords
	if err := json.Unmarshal(body, &native); err == nil && len(native.Records) > 0 {
		rec := native.Records[0].S3
		if rec.Bucket.Name != "" && rec.Object.Key != "" {
			return StorageEvent{Bucket: rec.Bucket.Name, Key: rec.Object.Key}, nil
		}
	}

	var bare StorageEvent
	if err := json.Unmarshal(body, &bare); err != nil {
		return StorageEvent{}, fmt.Errorf("failed to decode storage event: %w", err)
	}
	if bare.Bucket == "" || bare.Key == "" {
		return StorageEvent{}, fmt.Errorf("storage event is missing bucket or key")
	}
	return bare, nil
}
