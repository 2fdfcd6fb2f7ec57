/*
Package paginate provides a lazy, pull-based iterator over paged query and
scan results.

An Iterator wraps a FetchFunc that performs one page request. Pages are
requested strictly in cursor-chained order, one at a time, and only when the
consumer asks for an item beyond the current page:

	Ready -> Fetching -> (Yielding -> Fetching)* -> Done
	                  \-> Failed

Iteration ends when a page arrives without a continuation cursor or when the
configured limit has been yielded. A page that is empty but still carries a
cursor (common with filtered scans) simply triggers the next fetch.

The iterator never retries. A fetch error is surfaced unchanged through Err,
so retry policy belongs to the FetchFunc.
*/
package paginate
