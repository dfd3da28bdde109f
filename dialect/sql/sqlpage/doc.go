// Package sqlpage implements keyset pagination over sqlquery builders.
//
// A Pager orders the base query by key columns covered by a unique index
// and remembers the key values of the first and last row of the current
// page. Next pages continue after the last row:
//
//	LastName > :PageLastName OR (LastName = :PageLastName AND Id > :PageId)
//
// Previous and last pages are fetched in descending order and reversed, so
// callers always see rows in ascending key order. The cursor can be saved
// with GetPagingState and restored on another Pager with RestorePagingState.
package sqlpage
