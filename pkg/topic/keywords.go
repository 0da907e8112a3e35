package topic

// keywordTable maps each topic to its static entry list. Entries are matched
// against the punctuation-stripped normalized text: ASCII entries require
// whole-word boundaries, non-ASCII entries match by substring containment.
// Lists are product constants, tuned by hand, bilingual (English + Korean).
var keywordTable = map[ID][]string{
	Politics: {
		"election", "president", "prime minister", "congress", "senate", "democrat",
		"republican", "political party", "vote for", "정치", "대통령", "선거",
		"국회", "보수", "진보",
	},
	Religion: {
		"church", "bible", "quran", "buddhist", "praying", "religion",
		"atheist", "god says", "종교", "교회", "기도", "성경", "절에",
	},
	SexualContent: {
		"sex", "sexual", "nude", "naked", "porn", "erotic", "horny",
		"make love", "sleep together", "성관계", "야한", "음란", "섹스", "벗은",
	},
	SexualJokes: {
		"dirty joke", "sexual joke", "that's what she said", "innuendo",
		"야한 농담", "음담패설", "섹드립",
	},
	MentalHealth: {
		"depressed", "depression", "anxiety", "anxious", "panic attack",
		"therapy", "therapist", "burnout", "lonely", "stressed",
		"우울", "불안", "공황", "상담", "외로워", "스트레스", "힘들어",
	},
	SelfHarm: {
		"kill myself", "suicide", "suicidal", "self harm", "hurt myself",
		"end my life", "want to die", "cutting myself",
		"자살", "죽고 싶", "자해", "사라지고 싶",
	},
	Substances: {
		"drunk", "alcohol", "weed", "marijuana", "cocaine", "drugs", "high",
		"smoking", "vape", "술", "마약", "대마", "담배", "취했",
	},
	Gambling: {
		"casino", "betting", "gamble", "gambling", "poker", "lottery",
		"slot machine", "도박", "베팅", "카지노", "복권",
	},
	Violence: {
		"punch", "fight", "beat up", "stab", "shoot", "weapon", "gun",
		"kill him", "kill her", "폭력", "때리", "싸움", "총", "칼로",
	},
	IllegalActivity: {
		"steal", "stealing", "shoplift", "hack into", "counterfeit",
		"pirated", "smuggle", "break into", "fake id",
		"훔치", "해킹", "밀수", "불법", "위조",
	},
	HateHarassment: {
		"hate speech", "slur", "racist", "sexist", "bigot", "harass",
		"harassment", "bully", "bullying", "혐오", "차별", "괴롭히", "왕따",
	},
	Medical: {
		"doctor", "hospital", "diagnosis", "symptom", "medication",
		"prescription", "surgery", "vaccine", "병원", "의사", "진단", "약",
		"수술", "증상",
	},
	PersonalFinance: {
		"salary", "savings", "invest", "investment", "stocks", "crypto",
		"debt", "loan", "budget", "rent", "월급", "저축", "투자", "주식",
		"대출", "빚",
	},
	Relationships: {
		"boyfriend", "girlfriend", "crush", "dating", "breakup", "broke up",
		"my ex", "marriage", "divorce", "남자친구", "여자친구", "짝사랑",
		"연애", "이별", "결혼",
	},
	Family: {
		"my mom", "my dad", "my mother", "my father", "my brother",
		"my sister", "my parents", "grandma", "grandpa", "엄마", "아빠",
		"부모님", "언니", "오빠", "동생", "할머니", "할아버지",
	},
	WorkSchool: {
		"my job", "my boss", "coworker", "overtime", "interview", "resume",
		"homework", "my exam", "midterm", "final exam", "professor",
		"회사", "상사", "야근", "숙제", "시험", "학교", "교수님", "취업",
	},
	Travel: {
		"trip", "vacation", "travel", "flight", "itinerary", "sightseeing",
		"backpacking", "여행", "휴가", "비행기", "관광",
	},
	Entertainment: {
		"movie", "netflix", "concert", "album", "kpop", "k-pop", "drama",
		"webtoon", "anime", "idol", "영화", "드라마", "콘서트", "아이돌",
		"웹툰", "노래",
	},
	TechGaming: {
		"computer", "laptop", "coding", "programming", "video game", "gaming",
		"console", "pc game", "league of legends", "overwatch", "minecraft",
		"게임", "컴퓨터", "코딩", "롤",
	},
}
