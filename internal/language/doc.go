// Package language maps stopword languages between word forms and ISO codes
// and loads their stopword lists.
//
// Lists follow the nltk corpus layout (one file per language named after the
// language word). English and Spanish lists are built in; the rest are read
// from a configured directory.
package language
