// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectType_Dispatch(t *testing.T) {
	tests := []struct {
		typ      ObjectType
		plural   string
		keyParam string
		parent   string
	}{
		{ObjectCollection, "collections", "collectionKey", "parentCollection"},
		{ObjectSearch, "searches", "searchKey", ""},
		{ObjectItem, "items", "itemKey", "parentItem"},
		{ObjectSetting, "settings", "settingKey", ""},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			assert.Equal(t, tt.plural, tt.typ.Plural())
			assert.Equal(t, tt.keyParam, tt.typ.KeyParam())
			assert.Equal(t, tt.parent, tt.typ.ParentField())
			assert.True(t, tt.typ.Valid())
		})
	}
	assert.False(t, ObjectType("relation").Valid())
}

func TestParentKeyOf(t *testing.T) {
	assert.Equal(t, "BBBBBBBB", ParentKeyOf(ObjectItem, ObjectData{"parentItem": "BBBBBBBB"}))
	assert.Equal(t, "", ParentKeyOf(ObjectCollection, ObjectData{"parentCollection": false}))
	assert.Equal(t, "", ParentKeyOf(ObjectSearch, ObjectData{"parentCollection": "BBBBBBBB"}))
}

func TestLibrary_Prefix(t *testing.T) {
	assert.Equal(t, "users/1", Library{Type: LibraryUser, RemoteID: 1}.Prefix())
	assert.Equal(t, "groups/42", Library{Type: LibraryGroup, RemoteID: 42}.Prefix())
}

func TestObjectData_Clone(t *testing.T) {
	d := ObjectData{"title": "A"}
	c := d.Clone()
	c["title"] = "B"
	assert.Equal(t, "A", d.String("title"))
	assert.Nil(t, ObjectData(nil).Clone())
}
