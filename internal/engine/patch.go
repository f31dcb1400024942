package engine

import (
	"reflect"

	"github.com/MKhiriev/go-refsync/models"
)

// storageFields are the attachment properties negotiated with the file
// storage backend.
var storageFields = []string{"mtime", "md5"}

// buildPayload returns the upload representation of obj. Objects never
// uploaded, or without a cached ancestor, are sent in full at their current
// version. Otherwise only fields changed since the ancestor are sent, and
// removed fields are sent as empty values.
func buildPayload(lib models.Library, obj models.Object, ancestor *models.CacheEntry) models.ObjectData {
	var payload models.ObjectData
	if obj.Version == 0 || ancestor == nil {
		payload = obj.Data.Clone()
		if payload == nil {
			payload = make(models.ObjectData)
		}
	} else {
		payload = make(models.ObjectData)
		for f, v := range obj.Data {
			if old, ok := ancestor.Data[f]; !ok || !reflect.DeepEqual(old, v) {
				payload[f] = v
			}
		}
		for f, old := range ancestor.Data {
			if _, ok := obj.Data[f]; !ok {
				payload[f] = emptyValue(old)
			}
		}
		if obj.Type == models.ObjectItem {
			if v, ok := obj.Data[dateModifiedField]; ok {
				payload[dateModifiedField] = v
			}
		}
	}

	if obj.Type == models.ObjectItem && obj.Data.String("itemType") == "attachment" {
		applyStorageMode(lib.StorageMode, obj.Data, payload)
	}

	payload["key"] = obj.Key
	payload["version"] = obj.Version
	return payload
}

// applyStorageMode strips the storage properties for server file storage
// and always sends them, null when unset, for WebDAV.
func applyStorageMode(mode models.StorageMode, data, payload models.ObjectData) {
	for _, f := range storageFields {
		if mode != models.StorageWebDAV {
			delete(payload, f)
			continue
		}
		if v, ok := data[f]; ok {
			payload[f] = v
		} else {
			payload[f] = nil
		}
	}
}

// emptyValue returns the empty value of the JSON type of v.
func emptyValue(v any) any {
	switch v.(type) {
	case string:
		return ""
	case bool:
		return false
	case []any:
		return []any{}
	case map[string]any:
		return map[string]any{}
	default:
		return nil
	}
}
