package papers

import (
	"strings"

	"github.com/scentlab/essentia/internal/models"
)

// curatedPapers are well-known open-access papers served when the
// search API is unreachable, keyed by topic keywords.
var curatedPapers = map[string][]models.Paper{
	"machine learning": {
		{
			Title:         "Attention Is All You Need",
			Authors:       "Vaswani, A., Shazeer, N., Parmar, N.",
			Year:          2017,
			PDFURL:        "https://arxiv.org/pdf/1706.03762.pdf",
			Abstract:      "The dominant sequence transduction models are based on complex recurrent or convolutional neural networks...",
			ArxivID:       "1706.03762",
			CitationCount: 10000,
		},
		{
			Title:         "Deep Residual Learning for Image Recognition",
			Authors:       "He, K., Zhang, X., Ren, S.",
			Year:          2016,
			PDFURL:        "https://arxiv.org/pdf/1512.03385.pdf",
			Abstract:      "Deeper neural networks are more difficult to train. We present a residual learning framework...",
			ArxivID:       "1512.03385",
			CitationCount: 8000,
		},
		{
			Title:         "BERT: Pre-training of Deep Bidirectional Transformers",
			Authors:       "Devlin, J., Chang, M.W., Lee, K.",
			Year:          2018,
			PDFURL:        "https://arxiv.org/pdf/1810.04805.pdf",
			Abstract:      "We introduce a new language representation model called BERT...",
			ArxivID:       "1810.04805",
			CitationCount: 12000,
		},
	},
	"reinforcement learning": {
		{
			Title:         "Playing Atari with Deep Reinforcement Learning",
			Authors:       "Mnih, V., Kavukcuoglu, K., Silver, D.",
			Year:          2013,
			PDFURL:        "https://arxiv.org/pdf/1312.5602.pdf",
			Abstract:      "We present the first deep learning model to successfully learn control policies directly from high-dimensional sensory input...",
			ArxivID:       "1312.5602",
			CitationCount: 9000,
		},
		{
			Title:         "Proximal Policy Optimization Algorithms",
			Authors:       "Schulman, J., Wolski, F., Dhariwal, P.",
			Year:          2017,
			PDFURL:        "https://arxiv.org/pdf/1707.06347.pdf",
			Abstract:      "We propose a new family of policy gradient methods for reinforcement learning...",
			ArxivID:       "1707.06347",
			CitationCount: 7000,
		},
	},
}

// FallbackPapers returns curated papers matching the query by keyword,
// defaulting to the machine learning set.
func FallbackPapers(query string) []models.Paper {
	lowered := strings.ToLower(query)
	for key, set := range curatedPapers {
		for _, word := range strings.Fields(key) {
			if strings.Contains(lowered, word) {
				return set
			}
		}
	}
	return curatedPapers["machine learning"]
}
