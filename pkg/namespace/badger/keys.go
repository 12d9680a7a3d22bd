package badger

// Database Key Namespace Design
// ==============================
//
// BadgerDB is a key-value store, so prefixed keys separate the data types.
//
// Data Type        Prefix   Key Format                       Value Type
// =======================================================================
// Entry Data       "f:"     f:<id>                           entryData (JSON)
// Children Map     "c:"     c:<parentID>:<childName>         childID (bytes)
//
// Entry identifiers use the pnfsid format (namespace.NewID), so they never
// contain ':' and child keys cannot collide across parents.
//
// An entry records its own parent identifier and name, which makes the
// upward walk in HandleToPath a chain of point lookups on "f:" keys.

const (
	prefixEntry = "f:"
	prefixChild = "c:"
)

// keyEntry generates the key for an entry's data.
func keyEntry(id string) []byte {
	return []byte(prefixEntry + id)
}

// keyChild generates the key for one directory entry.
func keyChild(parentID, name string) []byte {
	return []byte(prefixChild + parentID + ":" + name)
}
