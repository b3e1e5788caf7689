package locator

// EstimatePage guesses a page for an article number when neither the
// backend nor a text scan produced one. Vietnamese statutes pack early
// articles (definitions, scope) densely and later ones more sparsely, so
// the estimate grows faster for higher numbers. The exact constants are
// tuning, not contract; the result is always within [1, totalPages] when
// totalPages is known.
func EstimatePage(articleNum, totalPages int) int {
	var page int
	switch {
	case articleNum <= 0:
		page = 1
	case articleNum <= 30:
		page = 1 + articleNum/4
	case articleNum <= 100:
		page = 8 + (articleNum-30)/3
	default:
		page = 32 + (articleNum-100)/2
	}

	if page < 1 {
		page = 1
	}
	if totalPages > 0 && page > totalPages {
		page = totalPages
	}
	return page
}
