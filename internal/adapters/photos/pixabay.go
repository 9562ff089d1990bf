package photos

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/devbush/tabr/internal/domain"
	"github.com/devbush/tabr/internal/ports"
)

const pixabayAPIURL = "https://pixabay.com"

var pixabaySearchTerms = []string{
	"nature landscape",
	"mountain sunset",
	"ocean beach",
	"forest trees",
	"sky clouds",
	"flowers garden",
	"city skyline",
	"winter snow",
	"autumn colors",
	"spring blossom",
}

// pixabayMaxPage keeps random pages inside what the API serves for these queries
const pixabayMaxPage = 10

var pixabayFallbacks = []domain.Photo{
	{
		URL:              "https://cdn.pixabay.com/photo/2021/08/25/20/42/field-6574455_1280.jpg",
		PhotographerName: "Pixabay",
		PhotographerLink: "https://pixabay.com",
		OriginalLink:     "https://pixabay.com",
	},
	{
		URL:              "https://cdn.pixabay.com/photo/2018/01/14/23/12/nature-3082832_1280.jpg",
		PhotographerName: "Pixabay",
		PhotographerLink: "https://pixabay.com",
		OriginalLink:     "https://pixabay.com",
	},
	{
		URL:              "https://cdn.pixabay.com/photo/2017/02/01/22/02/mountain-landscape-2031539_1280.jpg",
		PhotographerName: "Pixabay",
		PhotographerLink: "https://pixabay.com",
		OriginalLink:     "https://pixabay.com",
	},
}

// Pixabay searches Pixabay for a random page of photos and picks one
type Pixabay struct {
	base
}

// NewPixabay creates a Pixabay provider
func NewPixabay(opts Options) *Pixabay {
	p := &Pixabay{base: newBase(domain.ProviderPixabay, opts, pixabayAPIURL, pixabayFallbacks)}
	p.request = p.search
	return p
}

type pixabayResponse struct {
	Total     int            `json:"total"`
	TotalHits int            `json:"totalHits"`
	Hits      []pixabayImage `json:"hits"`
}

type pixabayImage struct {
	ID            int    `json:"id"`
	PageURL       string `json:"pageURL"`
	WebformatURL  string `json:"webformatURL"`
	LargeImageURL string `json:"largeImageURL"`
	FullHDURL     string `json:"fullHDURL"`
	User          string `json:"user"`
	UserID        int    `json:"user_id"`
}

func (p *Pixabay) searchURL(key string, skipCache bool) string {
	order := "popular"
	if skipCache {
		order = "latest"
	}

	params := url.Values{}
	params.Set("key", key)
	params.Set("q", pixabaySearchTerms[p.opts.Intn(len(pixabaySearchTerms))])
	params.Set("image_type", "photo")
	params.Set("orientation", "horizontal")
	params.Set("category", "nature,places,backgrounds")
	params.Set("min_width", "1920")
	params.Set("min_height", "1080")
	params.Set("safesearch", "true")
	params.Set("order", order)
	params.Set("page", strconv.Itoa(p.opts.Intn(pixabayMaxPage)+1))
	params.Set("per_page", "20")
	if skipCache {
		params.Set("t", strconv.FormatInt(p.opts.Now().UnixMilli(), 10))
	}
	return p.baseURL + "/api/?" + params.Encode()
}

func (p *Pixabay) search(ctx context.Context, key string, skipCache bool) (domain.Photo, error) {
	var resp pixabayResponse
	if err := p.getJSON(ctx, p.searchURL(key, skipCache), nil, &resp); err != nil {
		return domain.Photo{}, err
	}
	if len(resp.Hits) == 0 {
		return domain.Photo{}, errEmptyResult
	}

	hit := resp.Hits[p.opts.Intn(len(resp.Hits))]
	photoURL := firstNonEmpty(hit.FullHDURL, hit.LargeImageURL, hit.WebformatURL)
	if photoURL == "" {
		return domain.Photo{}, fmt.Errorf("hit %d has no image url", hit.ID)
	}

	return domain.Photo{
		URL:              photoURL,
		PhotographerName: hit.User,
		PhotographerLink: fmt.Sprintf("https://pixabay.com/users/%s-%d/", hit.User, hit.UserID),
		OriginalLink:     hit.PageURL,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

var _ ports.PhotoProvider = (*Pixabay)(nil)
