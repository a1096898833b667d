package domain

// KeyPrefix namespaces every store key written by askdex.
const KeyPrefix = "askdex:"
