package everify

// QRSample is a raw QR value the sandbox answers for.
type QRSample struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

const (
	DefaultQRValue      = `{"type":"Digital ID","value":"AAA000"}`
	DefaultQRLivenessID = "9cd0cb37-5661-4ccd-9d84-9dmn139c229b"
)

// SandboxQRSamples only resolve against the sandbox environment.
func SandboxQRSamples() []QRSample {
	return []QRSample{
		{Type: "National ID Number", Value: "1234123412341234"},
		{Type: "Digital ID", Value: "AAA000"},
		{Type: "National ID Signed", Value: `{"type":"National ID Signed"}`},
		{Type: "ePhilId", Value: "Type:ePhilId"},
		{Type: "Philsys Card", Value: `{"type":"Philsys Card"}`},
	}
}

func SamplePerson() Person {
	return Person{
		FirstName:             "Juan",
		MiddleName:            "Santos",
		LastName:              "Dela Cruz",
		Suffix:                "JR",
		BirthDate:             "1989-09-12",
		FaceLivenessSessionID: "1234567890",
	}
}
