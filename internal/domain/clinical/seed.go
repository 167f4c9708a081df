package clinical

// DefaultTreatments is the starter treatment catalog. Prices are in minor
// units of currency.
func DefaultTreatments(currency string) []TreatmentInput {
	return []TreatmentInput{
		{Code: "EXAM", Name: "Clinical examination", PriceAmount: 5000, Currency: currency, DurationMinutes: 30},
		{Code: "PROPHY", Name: "Prophylaxis and cleaning", PriceAmount: 8000, Currency: currency, DurationMinutes: 45},
		{Code: "XRAY-BW", Name: "Bitewing radiographs", PriceAmount: 4500, Currency: currency, DurationMinutes: 15},
		{Code: "REST-COMP", Name: "Composite restoration", Description: "Single surface resin filling", PriceAmount: 15000, Currency: currency, DurationMinutes: 60},
		{Code: "ENDO", Name: "Root canal treatment", PriceAmount: 60000, Currency: currency, DurationMinutes: 90},
		{Code: "EXTR", Name: "Simple extraction", PriceAmount: 12000, Currency: currency, DurationMinutes: 45},
		{Code: "SEAL", Name: "Pit and fissure sealant", PriceAmount: 3500, Currency: currency, DurationMinutes: 20},
		{Code: "CROWN", Name: "Ceramic crown", PriceAmount: 95000, Currency: currency, DurationMinutes: 90},
	}
}

func DefaultLesions() []LesionInput {
	return []LesionInput{
		{Code: "CARIES", Name: "Caries", Description: "Carious lesion", Color: "#D32F2F"},
		{Code: "FRACTURE", Name: "Fracture", Color: "#F57C00"},
		{Code: "ABRASION", Name: "Abrasion", Color: "#FBC02D"},
		{Code: "PERIAPICAL", Name: "Periapical lesion", Color: "#7B1FA2"},
		{Code: "CALCULUS", Name: "Calculus", Color: "#5D4037"},
		{Code: "RESTORATION", Name: "Existing restoration", Color: "#1976D2"},
	}
}
