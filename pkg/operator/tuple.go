package operator

// Tuple is one record's attributes. The attribute names carrying the key,
// value and ttl are configured, not fixed.
type Tuple map[string]string
