package knowledge

import "fmt"

// Scheme describes a government support scheme as presented to farmers
type Scheme struct {
	Name        string `json:"name"`
	Benefit     string `json:"benefit"`
	Eligibility string `json:"eligibility"`
}

// SchemeDetails resolves a scheme key from the crop database into its
// presentation record. MSP-linked schemes interpolate the crop's current
// MSP into the benefit line; crops without an MSP show "N/A".
func SchemeDetails(key string, crop *Crop) Scheme {
	mspText := "N/A"
	if crop != nil && crop.MSP2024 != nil {
		mspText = fmt.Sprintf("%.0f", *crop.MSP2024)
	}

	switch key {
	case "PM-KISAN":
		return Scheme{Name: "PM-KISAN", Benefit: "₹6000/year direct transfer", Eligibility: "All farmers"}
	case "PMFBY":
		return Scheme{Name: "Pradhan Mantri Fasal Bima Yojana", Benefit: "Crop insurance at 1.5-2% premium", Eligibility: "All farmers"}
	case "Paddy Procurement at MSP":
		return Scheme{Name: "Paddy MSP Procurement", Benefit: fmt.Sprintf("Guaranteed MSP of ₹%s/quintal", mspText), Eligibility: "Registered farmers"}
	case "Wheat Procurement":
		return Scheme{Name: "Wheat MSP Procurement", Benefit: fmt.Sprintf("Guaranteed MSP of ₹%s/quintal", mspText), Eligibility: "Registered farmers"}
	case "e-NAM":
		return Scheme{Name: "e-NAM (National Agriculture Market)", Benefit: "Online trading, better prices", Eligibility: "All farmers"}
	case "NAFED Procurement":
		return Scheme{Name: "NAFED Procurement", Benefit: fmt.Sprintf("Procurement at MSP ₹%s/quintal", mspText), Eligibility: "Registered farmers"}
	case "Pulses Procurement":
		return Scheme{Name: "Pulses Procurement Scheme", Benefit: "Assured procurement at MSP", Eligibility: "Registered farmers"}
	case "Cotton Corporation of India Procurement":
		return Scheme{Name: "CCI Cotton Procurement", Benefit: fmt.Sprintf("MSP of ₹%s/quintal", mspText), Eligibility: "Cotton farmers"}
	case "Sugar Development Fund":
		return Scheme{Name: "Sugar Development Fund", Benefit: "Loans for cane development", Eligibility: "Sugarcane farmers"}
	case "Cold Storage Subsidy":
		return Scheme{Name: "Cold Storage Subsidy Scheme", Benefit: "35-50% subsidy on cold storage", Eligibility: "FPOs, farmers"}
	default:
		return Scheme{Name: key, Benefit: "Various benefits", Eligibility: "Check with local office"}
	}
}
