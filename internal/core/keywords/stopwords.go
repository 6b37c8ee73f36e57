package keywords

// stopwords are dropped from captions. English plus the Indonesian and Malay filler
// words common in Shopee captions.
var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true, "not": true,
	"you": true, "all": true, "any": true, "can": true, "her": true, "was": true,
	"one": true, "our": true, "out": true, "his": true, "has": true, "had": true,
	"how": true, "its": true, "new": true, "now": true, "see": true, "who": true,
	"did": true, "get": true, "got": true, "let": true, "she": true, "too": true,
	"use": true, "way": true, "this": true, "that": true, "with": true, "have": true,
	"from": true, "they": true, "will": true, "your": true, "what": true, "when": true,
	"here": true, "there": true, "than": true, "then": true, "them": true, "were": true,
	"been": true, "into": true, "just": true, "like": true, "more": true, "most": true,
	"only": true, "over": true, "some": true, "such": true, "very": true, "also": true,
	"about": true, "after": true, "again": true, "check": true, "these": true,
	"those": true, "their": true, "which": true, "would": true, "could": true,
	"should": true, "where": true, "while": true, "because": true, "video": true,
	"follow": true, "link": true, "bio": true, "click": true, "watch": true,
	"yang": true, "dan": true, "untuk": true, "ini": true, "itu": true, "dengan": true,
	"dari": true, "aku": true, "kamu": true, "juga": true, "bisa": true, "ada": true,
	"tidak": true, "nya": true, "sudah": true, "lagi": true, "banget": true, "buat": true,
	"kalau": true, "atau": true, "saja": true, "aja": true,
}
