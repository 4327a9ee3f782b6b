package glossary

// Glossary maps source language terms to the target terms that must be used
// for them throughout a notebook.
type Glossary map[string]string

// Merge returns a new glossary with the entries of overlay taking precedence over g.
func (g Glossary) Merge(overlay Glossary) Glossary {
	out := make(Glossary, len(g)+len(overlay))
	for k, v := range g {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}

var koreanDefaults = Glossary{
	"Machine Learning":            "머신 러닝",
	"Deep Learning":               "딥 러닝",
	"Data Science":                "데이터 사이언스",
	"Artificial Intelligence":     "인공지능",
	"Neural Network":              "신경망",
	"Natural Language Processing": "자연어 처리",
	"Computer Vision":             "컴퓨터 비전",
	"Big Data":                    "빅 데이터",
	"Cloud Computing":             "클라우드 컴퓨팅",
	"DevOps":                      "DevOps",
	"MLOps":                       "MLOps",
	"API":                         "API",
	"SDK":                         "SDK",
	"CLI":                         "CLI",
	"AWS":                         "AWS",
	"Amazon":                      "Amazon",
}

// Defaults returns the built-in terminology for a target language base code.
func Defaults(targetLang string) Glossary {
	if normalizeLanguageCode(targetLang) == "ko" {
		return Glossary{}.Merge(koreanDefaults)
	}
	return Glossary{}
}
