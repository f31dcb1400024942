package engine

import (
	"reflect"
	"sort"

	"github.com/MKhiriev/go-refsync/models"
)

const dateModifiedField = "dateModified"

// changedFields returns the sorted names of fields that differ between from
// and to, including fields present on one side only. dateModified is never
// reported.
func changedFields(from, to models.ObjectData) []string {
	var fields []string
	for f, v := range to {
		if f == dateModifiedField {
			continue
		}
		if old, ok := from[f]; !ok || !reflect.DeepEqual(old, v) {
			fields = append(fields, f)
		}
	}
	for f := range from {
		if f == dateModifiedField {
			continue
		}
		if _, ok := to[f]; !ok {
			fields = append(fields, f)
		}
	}
	sort.Strings(fields)
	return fields
}

// sameContent reports whether a and b are equal ignoring dateModified.
func sameContent(a, b models.ObjectData) bool {
	return len(changedFields(a, b)) == 0
}

// threeWayMerge merges the local and remote edits of ancestor. When both
// sides changed a field to different values the field is returned in
// conflicts and merged is nil. Otherwise merged holds the remote fields with
// the local changes applied on top.
func threeWayMerge(ancestor, local, remote models.ObjectData) (merged models.ObjectData, conflicts []string) {
	localChanged := changedFields(ancestor, local)
	remoteChanged := setOf(changedFields(ancestor, remote)...)

	for _, f := range localChanged {
		if _, ok := remoteChanged[f]; !ok {
			continue
		}
		lv, lok := local[f]
		rv, rok := remote[f]
		if lok != rok || !reflect.DeepEqual(lv, rv) {
			conflicts = append(conflicts, f)
		}
	}
	if len(conflicts) > 0 {
		return nil, conflicts
	}

	merged = remote.Clone()
	if merged == nil {
		merged = make(models.ObjectData)
	}
	for _, f := range localChanged {
		if v, ok := local[f]; ok {
			merged[f] = v
		} else {
			delete(merged, f)
		}
	}
	if v, ok := local[dateModifiedField]; ok {
		merged[dateModifiedField] = v
	}
	return merged, nil
}
