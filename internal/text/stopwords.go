package text

// Polish stop words, used both when building a title's meaningful-word set
// and when penalizing anchors that begin or end on one.
var polishStopWords = map[string]struct{}{
	"a": {}, "aby": {}, "ale": {}, "albo": {}, "aż": {}, "bardzo": {},
	"bez": {}, "bo": {}, "być": {}, "był": {}, "była": {}, "było": {},
	"były": {}, "będzie": {}, "będą": {}, "co": {}, "coś": {}, "czy": {},
	"dla": {}, "do": {}, "gdy": {}, "gdzie": {}, "go": {}, "i": {},
	"ich": {}, "ile": {}, "im": {}, "inne": {}, "iż": {}, "ja": {},
	"jak": {}, "jakie": {}, "jako": {}, "je": {}, "jego": {}, "jej": {},
	"jest": {}, "jeszcze": {}, "jeśli": {}, "już": {}, "każdy": {},
	"kiedy": {}, "kto": {}, "która": {}, "które": {}, "którego": {},
	"której": {}, "który": {}, "których": {}, "którym": {}, "lub": {},
	"ma": {}, "mają": {}, "mogą": {}, "może": {}, "można": {}, "mi": {},
	"mnie": {}, "na": {}, "nad": {}, "nam": {}, "nas": {}, "nawet": {},
	"nie": {}, "nich": {}, "nim": {}, "niż": {}, "no": {}, "np": {},
	"o": {}, "od": {}, "ok": {}, "on": {}, "ona": {}, "one": {},
	"oni": {}, "ono": {}, "oraz": {}, "po": {}, "pod": {}, "ponad": {},
	"ponieważ": {}, "przed": {}, "przez": {}, "przy": {}, "roku": {},
	"również": {}, "się": {}, "sobie": {}, "są": {}, "ta": {}, "tak": {},
	"takie": {}, "także": {}, "tam": {}, "te": {}, "tego": {}, "tej": {},
	"ten": {}, "też": {}, "to": {}, "tu": {}, "tych": {}, "tylko": {},
	"tym": {}, "u": {}, "w": {}, "wam": {}, "we": {}, "więc": {},
	"wszystko": {}, "wśród": {}, "z": {}, "za": {}, "ze": {}, "że": {},
	"żeby": {},
}

// Words that make an anchor read as cut off when they end it: conjunctions,
// prepositions, relative pronouns, and short auxiliary/copula verbs.
var trailingForbiddenWords = map[string]struct{}{
	"i": {}, "oraz": {}, "ale": {}, "lub": {}, "albo": {}, "czy": {},
	"że": {}, "aby": {}, "żeby": {}, "bo": {}, "gdy": {}, "gdyż": {},
	"jak": {}, "niż": {}, "ponieważ": {},
	"w": {}, "we": {}, "z": {}, "ze": {}, "na": {}, "do": {}, "od": {},
	"dla": {}, "po": {}, "za": {}, "przy": {}, "przez": {}, "pod": {},
	"nad": {}, "o": {}, "u": {}, "bez": {}, "przed": {}, "między": {},
	"który": {}, "która": {}, "które": {}, "którego": {}, "której": {},
	"których": {}, "którym": {}, "którą": {},
	"jest": {}, "są": {}, "był": {}, "była": {}, "było": {}, "być": {},
	"ma": {}, "mają": {}, "to": {}, "się": {},
}

// IsStopWord reports whether the (already lowercased) word is a stop word.
func IsStopWord(word string) bool {
	_, ok := polishStopWords[word]
	return ok
}
