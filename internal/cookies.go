package internal

const (
	COOKIE_ACCESS_TOKEN_NAME = "na_access_token"
	COOKIE_REDIRECT_NAME     = "na_redirect"
	COOKIE_FORM_DATA_NAME    = "need_analysis_form"
)
