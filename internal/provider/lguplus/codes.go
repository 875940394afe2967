package lguplus

// untitled replaces a blank programme title.
const untitled = "제목 없음"

// Placeholder prefixes for codes missing from the lookup tables.
const (
	unknownGenrePrefix    = "장르코드:"
	unknownCategoryPrefix = "코드:"
)

// Broadcast feature tags, appended to extras in this order after the resolution label.
const (
	tagSubtitle     = "자막"
	tagNarration    = "화면해설"
	tagSignLanguage = "수화"
	flagYes         = "Y"
)

// ageRatings maps brdWtchAgeGrdCd to a minimum viewer age
var ageRatings = map[string]int{
	"0": 0,
	"1": 7,
	"2": 12,
	"3": 15,
	"4": 19,
	"":  0,
}

// programmeCategories maps urcBrdCntrTvSchdGnreCd to a category name
var programmeCategories = map[string]string{
	"00": "영화",
	"01": "스포츠/취미",
	"02": "만화",
	"03": "드라마",
	"04": "교양/다큐",
	"05": "스포츠/취미",
	"06": "교육",
	"07": "어린이",
	"08": "연예/오락",
	"09": "공연/음악",
	"10": "게임",
	"11": "다큐",
	"12": "뉴스/정보",
	"13": "라이프",
	"15": "홈쇼핑",
	"16": "경제/부동산",
	"31": "기타",
	"":   "기타",
}

// ratingFor maps an age code; unknown codes are 0
func ratingFor(code string) int {
	return ageRatings[code]
}

// categoriesFor resolves a category code. A blank code yields nil, not "기타".
func categoriesFor(code string) []string {
	if code == "" {
		return nil
	}
	if name, ok := programmeCategories[code]; ok {
		return []string{name}
	}
	return []string{unknownCategoryPrefix + code}
}
