package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-refsync/models"
)

func TestBuildPayload(t *testing.T) {
	lib := models.Library{StorageMode: models.StorageZFS}

	t.Run("new object is sent in full", func(t *testing.T) {
		obj := models.Object{Type: models.ObjectCollection, Key: "AAAAAAAA", Data: models.ObjectData{"name": "A"}}
		payload := buildPayload(lib, obj, nil)
		assert.Equal(t, models.ObjectData{"name": "A", "key": "AAAAAAAA", "version": int64(0)}, payload)
	})

	t.Run("no ancestor is sent in full", func(t *testing.T) {
		obj := models.Object{Type: models.ObjectCollection, Key: "AAAAAAAA", Version: 4, Data: models.ObjectData{"name": "A"}}
		payload := buildPayload(lib, obj, nil)
		assert.Equal(t, "A", payload["name"])
		assert.Equal(t, int64(4), payload["version"])
	})

	t.Run("patch against ancestor", func(t *testing.T) {
		obj := models.Object{
			Type:    models.ObjectItem,
			Key:     "AAAAAAAA",
			Version: 3,
			Data: models.ObjectData{
				"itemType":     "book",
				"title":        "New",
				"dateModified": "2026-01-01T00:00:00Z",
			},
		}
		ancestor := &models.CacheEntry{Version: 3, Data: models.ObjectData{
			"itemType":     "book",
			"title":        "Old",
			"url":          "http://example.com",
			"tags":         []any{"a"},
			"deleted":      true,
			"dateModified": "2026-01-01T00:00:00Z",
		}}

		payload := buildPayload(lib, obj, ancestor)
		assert.Equal(t, models.ObjectData{
			"title":        "New",
			"url":          "",
			"tags":         []any{},
			"deleted":      false,
			"dateModified": "2026-01-01T00:00:00Z",
			"key":          "AAAAAAAA",
			"version":      int64(3),
		}, payload)
	})
}

func TestBuildPayload_StorageMode(t *testing.T) {
	attachment := models.Object{
		Type: models.ObjectItem,
		Key:  "AAAAAAAA",
		Data: models.ObjectData{"itemType": "attachment", "md5": "abc", "filename": "a.pdf"},
	}

	zfs := buildPayload(models.Library{StorageMode: models.StorageZFS}, attachment, nil)
	assert.NotContains(t, zfs, "md5")
	assert.NotContains(t, zfs, "mtime")
	assert.Equal(t, "a.pdf", zfs["filename"])

	webdav := buildPayload(models.Library{StorageMode: models.StorageWebDAV}, attachment, nil)
	assert.Equal(t, "abc", webdav["md5"])
	assert.Contains(t, webdav, "mtime")
	assert.Nil(t, webdav["mtime"])
}

func TestBatchPayloads(t *testing.T) {
	payloads := []models.ObjectData{
		{"key": "A"}, {"key": "B"}, {"key": "C"}, {"key": "D"}, {"key": "E"},
	}

	batches, err := batchPayloads(payloads, 2, 1<<20)
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0, 1}, {2, 3}, {4}}, batches)

	// ограничение по размеру: каждый объект ~12 байт
	size, _ := json.Marshal(payloads[0])
	batches, err = batchPayloads(payloads, 50, 2+2*(len(size)+1))
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0, 1}, {2, 3}, {4}}, batches)

	// объект больше лимита уходит отдельно
	batches, err = batchPayloads(payloads[:2], 50, 1)
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0}, {1}}, batches)

	_, err = batchPayloads([]models.ObjectData{{"bad": func() {}}}, 1, 1)
	assert.Error(t, err)
}

func TestEmptyValue(t *testing.T) {
	assert.Equal(t, "", emptyValue("x"))
	assert.Equal(t, false, emptyValue(true))
	assert.Equal(t, []any{}, emptyValue([]any{1}))
	assert.Equal(t, map[string]any{}, emptyValue(map[string]any{"a": 1}))
	assert.Nil(t, emptyValue(float64(3)))
}
