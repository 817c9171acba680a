package everify

// API path suffixes appended to the environment's base URL.
const (
	PathAuth     = "/auth"
	PathQuery    = "/query"
	PathQRCheck  = "/query/qr/check"
	PathQRVerify = "/query/qr"
)

type AuthRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// Person is the record sent to /query.
type Person struct {
	FirstName             string `json:"first_name"`
	MiddleName            string `json:"middle_name"`
	LastName              string `json:"last_name"`
	Suffix                string `json:"suffix"`
	BirthDate             string `json:"birth_date"`
	FaceLivenessSessionID string `json:"face_liveness_session_id"`
}

type QRCheckRequest struct {
	Value string `json:"value"`
}

type QRVerifyRequest struct {
	Value                 string `json:"value"`
	FaceLivenessSessionID string `json:"face_liveness_session_id"`
}

// authResponse is the only response shape we look inside of.
type authResponse struct {
	Data struct {
		AccessToken string `json:"access_token"`
	} `json:"data"`
}
