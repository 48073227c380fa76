package duplicate

import "regexp"

// MerchantCategory names a family of merchants whose descriptions vary by
// branch ("스타벅스 강남점" / "스타벅스 역삼점") but mean the same kind of spend.
type MerchantCategory string

const (
	MerchantGrocery    MerchantCategory = "grocery"
	MerchantCafe       MerchantCategory = "cafe"
	MerchantRestaurant MerchantCategory = "restaurant"
	MerchantFuel       MerchantCategory = "fuel"
	MerchantMedical    MerchantCategory = "medical"
	MerchantTransit    MerchantCategory = "transit"
	MerchantOnline     MerchantCategory = "online_shopping"
)

type merchantPattern struct {
	category MerchantCategory
	pattern  *regexp.Regexp
}

// Evaluated in order against each description independently. Short Latin
// brand names sit between word boundaries so they do not fire inside
// ordinary words.
var merchantPatterns = []merchantPattern{
	{MerchantGrocery, regexp.MustCompile(`(?i)(마트|슈퍼|편의점|이마트|홈플러스|롯데마트|코스트코|하나로|세븐일레븐|미니스톱|\bgs25\b|\bcu\b|\bemart)`)},
	{MerchantCafe, regexp.MustCompile(`(?i)(카페|커피|스타벅스|투썸|이디야|메가커피|빽다방|할리스|폴바셋|cafe|coffee|starbucks)`)},
	{MerchantRestaurant, regexp.MustCompile(`(?i)(식당|레스토랑|음식점|맛집|치킨|피자|버거|김밥|분식|배달의민족|요기요|쿠팡이츠)`)},
	{MerchantFuel, regexp.MustCompile(`(?i)(주유소|주유|셀프주유|sk에너지|gs칼텍스|s-oil|에쓰오일|현대오일뱅크)`)},
	{MerchantMedical, regexp.MustCompile(`(?i)(병원|의원|약국|치과|한의원|클리닉|메디컬)`)},
	{MerchantTransit, regexp.MustCompile(`(?i)(지하철|버스|택시|교통|카카오t|코레일|티머니|\bktx\b|\bsrt\b)`)},
	{MerchantOnline, regexp.MustCompile(`(?i)(쿠팡|11번가|g마켓|지마켓|옥션|위메프|티몬|무신사|네이버쇼핑|\bssg\b)`)},
}

// MerchantCategories returns every category whose pattern matches description.
func MerchantCategories(description string) []MerchantCategory {
	var out []MerchantCategory
	for _, mp := range merchantPatterns {
		if mp.pattern.MatchString(description) {
			out = append(out, mp.category)
		}
	}
	return out
}

func sharesMerchantCategory(a, b []MerchantCategory) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
