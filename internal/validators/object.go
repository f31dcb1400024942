package validators

import (
	"context"
	"fmt"
	"slices"

	"github.com/MKhiriev/go-refsync/internal/utils"
	"github.com/MKhiriev/go-refsync/models"
)

// Field name constants restrict Validate to a subset of the checks.
const (
	// FieldKey targets the 8-character object key.
	FieldKey = "key"

	// FieldVersion targets the version the object was based on.
	FieldVersion = "version"

	// FieldName targets the name of collections and searches.
	FieldName = "name"

	// FieldItemType targets the item type of items.
	FieldItemType = "itemType"

	// FieldParent targets parentCollection and parentItem.
	FieldParent = "parent"

	// FieldConditions targets the conditions of searches.
	FieldConditions = "conditions"

	// FieldTags targets the tags of items.
	FieldTags = "tags"

	// FieldCollections targets the collection keys of items.
	FieldCollections = "collections"

	// FieldRelations targets the relations of collections and items.
	FieldRelations = "relations"

	// FieldDeleted targets the trash flag.
	FieldDeleted = "deleted"

	// FieldValue targets the value of settings.
	FieldValue = "value"
)

// ObjectWrite is one object of a write request.
type ObjectWrite struct {
	Type models.ObjectType
	Data models.ObjectData
}

// SettingWrite is one setting of a write request.
type SettingWrite struct {
	Name string
	Data models.ObjectData
}

// ObjectValidator checks the shape of objects sent by clients. Fields are
// checked only when present, except for the fields a new object must carry.
// An empty value is accepted everywhere because it removes the field.
type ObjectValidator struct{}

func NewObjectValidator() Validator {
	return &ObjectValidator{}
}

// Validate dispatches on ObjectWrite and SettingWrite, by value or pointer.
func (v *ObjectValidator) Validate(ctx context.Context, obj any, fields ...string) error {
	switch value := obj.(type) {
	case ObjectWrite:
		return v.validateObject(ctx, value, fields...)
	case *ObjectWrite:
		return v.validateObject(ctx, *value, fields...)
	case SettingWrite:
		return v.validateSetting(ctx, value, fields...)
	case *SettingWrite:
		return v.validateSetting(ctx, *value, fields...)
	default:
		return ErrUnsupportedType
	}
}

func (v *ObjectValidator) validateObject(_ context.Context, obj ObjectWrite, fields ...string) error {
	if len(fields) == 0 {
		fields = objectFields(obj.Type)
	}
	isNew := isNewObject(obj.Data)

	for _, field := range fields {
		var err error
		switch field {
		case FieldKey:
			err = checkKey(obj.Data)
		case FieldVersion:
			err = checkVersion(obj.Data)
		case FieldName:
			err = checkName(obj.Data, isNew)
		case FieldItemType:
			err = checkItemType(obj.Data, isNew)
		case FieldParent:
			err = checkParent(obj.Type, obj.Data)
		case FieldConditions:
			err = checkConditions(obj.Data)
		case FieldTags:
			err = checkTags(obj.Data)
		case FieldCollections:
			err = checkCollections(obj.Data)
		case FieldRelations:
			err = checkRelations(obj.Data)
		case FieldDeleted:
			err = checkDeleted(obj.Data)
		default:
			return fmt.Errorf("%w: %s", ErrUnknownField, field)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (v *ObjectValidator) validateSetting(_ context.Context, setting SettingWrite, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldKey, FieldValue}
	}
	for _, field := range fields {
		switch field {
		case FieldKey:
			if setting.Name == "" {
				return fmt.Errorf("%w: empty setting name", ErrInvalidKey)
			}
		case FieldValue:
			if value, ok := setting.Data["value"]; !ok || value == nil {
				return fmt.Errorf("%w: %q", ErrEmptySettingValue, setting.Name)
			}
		default:
			return fmt.Errorf("%w: %s", ErrUnknownField, field)
		}
	}
	return nil
}

func objectFields(t models.ObjectType) []string {
	switch t {
	case models.ObjectCollection:
		return []string{FieldKey, FieldVersion, FieldName, FieldParent, FieldRelations, FieldDeleted}
	case models.ObjectSearch:
		return []string{FieldKey, FieldVersion, FieldName, FieldConditions, FieldDeleted}
	case models.ObjectItem:
		return []string{FieldKey, FieldVersion, FieldItemType, FieldParent, FieldTags, FieldCollections, FieldRelations, FieldDeleted}
	default:
		return []string{FieldKey, FieldVersion}
	}
}

// isNewObject reports whether data creates an object rather than patching one.
func isNewObject(data models.ObjectData) bool {
	version, ok := data["version"].(float64)
	return !ok || version == 0
}

func checkKey(data models.ObjectData) error {
	raw, ok := data["key"]
	if !ok {
		return nil
	}
	key, isString := raw.(string)
	if !isString || !utils.IsValidObjectKey(key) {
		return fmt.Errorf("%w: %v", ErrInvalidKey, raw)
	}
	return nil
}

func checkVersion(data models.ObjectData) error {
	raw, ok := data["version"]
	if !ok {
		return nil
	}
	version, isNumber := raw.(float64)
	if !isNumber || version < 0 || version != float64(int64(version)) {
		return fmt.Errorf("%w: %v", ErrInvalidVersion, raw)
	}
	return nil
}

func checkName(data models.ObjectData, required bool) error {
	raw, ok := data["name"]
	if !ok {
		if required {
			return ErrInvalidName
		}
		return nil
	}
	name, isString := raw.(string)
	if !isString || (required && name == "") {
		return ErrInvalidName
	}
	return nil
}

func checkItemType(data models.ObjectData, required bool) error {
	raw, ok := data["itemType"]
	if !ok {
		if required {
			return ErrInvalidItemType
		}
		return nil
	}
	if itemType, isString := raw.(string); !isString || itemType == "" {
		return ErrInvalidItemType
	}
	return nil
}

func checkParent(t models.ObjectType, data models.ObjectData) error {
	field := "parentItem"
	if t == models.ObjectCollection {
		field = "parentCollection"
	}
	raw, ok := data[field]
	if !ok {
		return nil
	}
	switch parent := raw.(type) {
	case bool:
		if !parent {
			return nil
		}
	case string:
		if parent == "" || utils.IsValidObjectKey(parent) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s=%v", ErrInvalidParent, field, raw)
}

func checkConditions(data models.ObjectData) error {
	raw, ok := data["conditions"]
	if !ok {
		return nil
	}
	conditions, isList := raw.([]any)
	if !isList {
		return ErrInvalidConditions
	}
	for i, c := range conditions {
		condition, isObject := c.(map[string]any)
		if !isObject {
			return fmt.Errorf("%w: condition %d is not an object", ErrInvalidConditions, i)
		}
		for _, field := range []string{"condition", "operator"} {
			if value, _ := condition[field].(string); value == "" {
				return fmt.Errorf("%w: condition %d has no %s", ErrInvalidConditions, i, field)
			}
		}
	}
	return nil
}

func checkTags(data models.ObjectData) error {
	raw, ok := data["tags"]
	if !ok {
		return nil
	}
	tags, isList := raw.([]any)
	if !isList {
		return ErrInvalidTags
	}
	for i, t := range tags {
		tag, isObject := t.(map[string]any)
		if !isObject {
			return fmt.Errorf("%w: tag %d is not an object", ErrInvalidTags, i)
		}
		if name, _ := tag["tag"].(string); name == "" {
			return fmt.Errorf("%w: tag %d has no name", ErrInvalidTags, i)
		}
	}
	return nil
}

func checkCollections(data models.ObjectData) error {
	raw, ok := data["collections"]
	if !ok {
		return nil
	}
	keys, isList := raw.([]any)
	if !isList {
		return ErrInvalidCollection
	}
	if slices.ContainsFunc(keys, func(k any) bool {
		key, isString := k.(string)
		return !isString || !utils.IsValidObjectKey(key)
	}) {
		return fmt.Errorf("%w: %v", ErrInvalidCollection, raw)
	}
	return nil
}

func checkRelations(data models.ObjectData) error {
	raw, ok := data["relations"]
	if !ok {
		return nil
	}
	// пустой список означает удаление поля
	if list, isList := raw.([]any); isList && len(list) == 0 {
		return nil
	}
	if _, isObject := raw.(map[string]any); !isObject {
		return ErrInvalidRelations
	}
	return nil
}

func checkDeleted(data models.ObjectData) error {
	raw, ok := data["deleted"]
	if !ok {
		return nil
	}
	switch deleted := raw.(type) {
	case bool:
		return nil
	case float64:
		if deleted == 0 || deleted == 1 {
			return nil
		}
	}
	return fmt.Errorf("%w: %v", ErrInvalidDeleted, raw)
}
