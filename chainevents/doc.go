// Package chainevents decodes the logs of the LibraryChain contract into a closed set of event types.
//
// Every decoded event implements Event. The set is sealed: only the five types of this package
// implement it, so consumers dispatch with an exhaustive type switch:
//
//	switch e := event.(type) {
//	case chainevents.PublisherRegistered:
//	case chainevents.BookCreated:
//	case chainevents.BookItemsAdded:
//	case chainevents.BookItemsStatusChanged:
//	case chainevents.ChapterCreated:
//	}
//
// On-chain identifiers are converted to their canonical string form while decoding: addresses become
// checksummed hex strings and unsigned integers become decimal strings.
package chainevents
