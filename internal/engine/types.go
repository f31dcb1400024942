package engine

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/tidwall/gjson"

	"github.com/MKhiriev/go-refsync/models"
)

// typeDescriptor describes how one object type is synced.
type typeDescriptor struct {
	objectType models.ObjectType

	// includeTrashed adds includeTrashed=1 to manifests and object requests.
	includeTrashed bool
	// topManifest means a top-level manifest exists and is fetched first.
	topManifest bool

	// fields lists the known data fields. Unknown fields are dropped.
	// A nil set accepts any field.
	fields map[string]struct{}

	// check classifies a raw payload. A non-nil error means the object
	// cannot be applied and its key is queued.
	check func(raw json.RawMessage) error
}

var descriptors = map[models.ObjectType]typeDescriptor{
	models.ObjectSetting: {
		objectType: models.ObjectSetting,
	},
	models.ObjectCollection: {
		objectType: models.ObjectCollection,
		fields:     setOf("name", "parentCollection", "relations", "deleted"),
	},
	models.ObjectSearch: {
		objectType: models.ObjectSearch,
		fields:     setOf("name", "conditions", "deleted"),
		check:      checkSearch,
	},
	models.ObjectItem: {
		objectType:     models.ObjectItem,
		includeTrashed: true,
		topManifest:    true,
		fields:         itemFields,
		check:          checkItem,
	},
}

func descriptorOf(t models.ObjectType) typeDescriptor {
	return descriptors[t]
}

// decode validates raw and returns its data without key and version. The
// names of dropped unknown fields are returned sorted.
func (d typeDescriptor) decode(raw json.RawMessage) (models.ObjectData, []string, error) {
	if d.check != nil {
		if err := d.check(raw); err != nil {
			return nil, nil, err
		}
	}

	var data models.ObjectData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if data == nil {
		return nil, nil, fmt.Errorf("%w: data is not an object", ErrInvalidPayload)
	}
	delete(data, "key")
	delete(data, "version")

	var dropped []string
	if d.fields != nil {
		for field := range data {
			if _, ok := d.fields[field]; !ok {
				dropped = append(dropped, field)
				delete(data, field)
			}
		}
		sort.Strings(dropped)
	}
	return data, dropped, nil
}

func checkItem(raw json.RawMessage) error {
	itemType := gjson.GetBytes(raw, "itemType")
	if !itemType.Exists() || itemType.Type != gjson.String {
		return fmt.Errorf("%w: itemType is missing", ErrUnknownItemType)
	}
	if _, ok := itemTypes[itemType.String()]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownItemType, itemType.String())
	}
	return nil
}

func checkSearch(raw json.RawMessage) error {
	var err error
	gjson.GetBytes(raw, "conditions").ForEach(func(_, cond gjson.Result) bool {
		condition := cond.Get("condition").String()
		operator := cond.Get("operator").String()
		if _, ok := searchConditions[condition]; !ok {
			err = fmt.Errorf("%w: %q", ErrUnknownSearchCondition, condition)
			return false
		}
		if _, ok := searchOperators[operator]; !ok {
			err = fmt.Errorf("%w: %q", ErrUnknownSearchOperator, operator)
			return false
		}
		return true
	})
	return err
}

// parentKeyOf reads the dependency field of a raw payload. false and missing
// values mean no parent.
func parentKeyOf(t models.ObjectType, raw json.RawMessage) string {
	field := t.ParentField()
	if field == "" {
		return ""
	}
	v := gjson.GetBytes(raw, field)
	if v.Type != gjson.String {
		return ""
	}
	return v.String()
}

func setOf(values ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

var itemTypes = setOf(
	"annotation", "artwork", "attachment", "audioRecording", "bill", "blogPost",
	"book", "bookSection", "case", "computerProgram", "conferencePaper",
	"dataset", "dictionaryEntry", "document", "email", "encyclopediaArticle",
	"film", "forumPost", "hearing", "instantMessage", "interview",
	"journalArticle", "letter", "magazineArticle", "manuscript", "map",
	"newspaperArticle", "note", "patent", "podcast", "preprint",
	"presentation", "radioBroadcast", "report", "standard", "statute",
	"thesis", "tvBroadcast", "videoRecording", "webpage",
)

var itemFields = setOf(
	// common
	"itemType", "title", "creators", "abstractNote", "date", "url",
	"accessDate", "language", "shortTitle", "rights", "extra", "tags",
	"collections", "relations", "dateAdded", "dateModified", "deleted",
	"inPublications", "parentItem",
	// bibliographic
	"publicationTitle", "volume", "issue", "pages", "series", "seriesTitle",
	"seriesText", "journalAbbreviation", "DOI", "ISSN", "ISBN", "publisher",
	"place", "edition", "numPages", "numberOfVolumes", "bookTitle",
	"proceedingsTitle", "conferenceName", "university", "thesisType",
	"reportNumber", "reportType", "institution", "websiteTitle",
	"websiteType", "archive", "archiveLocation", "libraryCatalog",
	"callNumber", "section", "medium", "genre", "runningTime",
	// notes
	"note",
	// attachments
	"linkMode", "contentType", "charset", "filename", "md5", "mtime", "path",
	// annotations
	"annotationType", "annotationText", "annotationComment",
	"annotationColor", "annotationPageLabel", "annotationSortIndex",
	"annotationPosition",
)

var searchConditions = setOf(
	"joinMode", "deleted", "noChildren", "unfiled", "retracted",
	"includeParentsAndChildren", "recursive", "savedSearch", "collection",
	"title", "creator", "tag", "note", "childNote", "itemType", "date",
	"dateAdded", "dateModified", "publicationTitle", "publisher", "url",
	"anyField", "fulltextContent", "fulltextWord", "quicksearch-titleCreatorYear",
	"quicksearch-fields", "quicksearch-everything", "libraryCatalog",
	"annotationText", "annotationComment", "fileTypeID", "abstractNote",
	"extra", "DOI", "ISBN", "ISSN", "language", "year",
)

var searchOperators = setOf(
	"is", "isNot", "contains", "doesNotContain", "isLessThan",
	"isGreaterThan", "isBefore", "isAfter", "isInTheLast", "beginsWith",
	"true", "false", "any", "all",
)
