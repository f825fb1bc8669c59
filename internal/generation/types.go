package generation

// Idea is one generated research idea.
type Idea struct {
	Title      string   `json:"title"`
	Overview   string   `json:"overview"`
	GapScore   int      `json:"gapScore"`
	Literature []string `json:"literature"`
	Industrial bool     `json:"industrial"`
}

// LiteratureAnalysis summarizes one source. Link is optional.
type LiteratureAnalysis struct {
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	Methodology string `json:"methodology"`
	Relevance   int    `json:"relevance"`
	Link        string `json:"link,omitempty"`
}

type ExperimentDesign struct {
	Title             string `json:"title"`
	Approach          string `json:"approach"`
	DataToBeCollected string `json:"dataToBeCollected"`
	AnalysisMethods   string `json:"analysisMethods"`
}

// RedTeamAnalysis is the critique of a proposal.
type RedTeamAnalysis struct {
	Weaknesses  []string `json:"weaknesses"`
	Assumptions []string `json:"assumptions"`
	Questions   []string `json:"questions"`
}

// IdeasInput is the input to GenerateIdeas.
type IdeasInput struct {
	Topic      string
	Context    string
	Industrial bool
}

// LiteratureInput is the input to AnalyzeLiterature.
type LiteratureInput struct {
	Titles     []string
	Topic      string
	Context    string
	Industrial bool
}

// Request is a tagged request for Client.Run. Only the fields relevant to
// Operation are read.
type Request struct {
	Operation  Operation
	Topic      string
	Context    string
	Titles     []string
	Industrial bool
	Content    []byte
	MIMEType   string
}

// Result is the typed outcome of one operation.
type Result interface {
	Operation() Operation
}

type (
	TopicList      []string
	IdeaList       []Idea
	LiteratureList []LiteratureAnalysis
	ExtractedText  string
	QuestionList   []string
	DesignList     []ExperimentDesign
)

func (TopicList) Operation() Operation        { return OpExpandTopic }
func (IdeaList) Operation() Operation         { return OpGenerateIdeas }
func (LiteratureList) Operation() Operation   { return OpAnalyzeLiterature }
func (ExtractedText) Operation() Operation    { return OpExtractText }
func (QuestionList) Operation() Operation     { return OpResearchQuestions }
func (DesignList) Operation() Operation       { return OpExperimentDesigns }
func (*RedTeamAnalysis) Operation() Operation { return OpCritiqueProposal }

// Wire envelopes.
type (
	topicsEnvelope struct {
		Topics []string `json:"topics"`
	}
	ideasEnvelope struct {
		Ideas []Idea `json:"ideas"`
	}
	analysesEnvelope struct {
		Analyses []LiteratureAnalysis `json:"analyses"`
	}
	questionsEnvelope struct {
		Questions []string `json:"questions"`
	}
	designsEnvelope struct {
		Designs []ExperimentDesign `json:"designs"`
	}
)
