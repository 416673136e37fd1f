// Package portal looks up utility accounts on BS&A Online.
//
// The Client drives the public "Utility Billing" payment search with plain
// HTTP: it loads the search page, fills the account or address form,
// follows the first result to the payment page and parses the bill from
// the page's visible text. No login is needed for the public search.
//
// The payment page does not expose structured data, so the parser works
// on text lines the way a person reads the page:
//
//	Account: 302913026
//	302913026 OCCUPANT
//	3040 ALVINA
//	Warren, MI 48091-2498
//	Amount to Pay:
//	$116.97
package portal
