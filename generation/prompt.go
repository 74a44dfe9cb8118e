package generation

import "strings"

// FallbackPrompt is used when no item was selected.
const FallbackPrompt = "stylish minimalist casual outfit"

// MaxReferenceImages caps the item photos sent along with a prompt.
const MaxReferenceImages = 3

type ItemDescriptor struct {
	ID          uint
	Name        string
	Subcategory string
	Color       string
	Brand       string
	ImageURL    string
}

// Selection is the set of items picked for one generated image.
type Selection struct {
	Top       *ItemDescriptor
	Bottom    *ItemDescriptor
	Accessory *ItemDescriptor
}

type slot struct {
	role string
	item *ItemDescriptor
}

func (s Selection) slots() []slot {
	return []slot{
		{role: "top", item: s.Top},
		{role: "bottom", item: s.Bottom},
		{role: "accessory", item: s.Accessory},
	}
}

// BuildPrompt renders "<color> <name-or-subcategory> <brand>" per present item
// joined with " and ".
func BuildPrompt(s Selection) string {
	var clauses []string
	for _, sl := range s.slots() {
		if sl.item == nil {
			continue
		}
		clauses = append(clauses, describe(sl.role, sl.item))
	}
	if len(clauses) == 0 {
		return FallbackPrompt
	}
	return strings.Join(clauses, " and ")
}

func describe(role string, item *ItemDescriptor) string {
	noun := firstNonBlank(item.Name, item.Subcategory, role)
	var words []string
	for _, w := range []string{item.Color, noun, item.Brand} {
		if w = strings.TrimSpace(w); w != "" {
			words = append(words, w)
		}
	}
	return strings.Join(words, " ")
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// ImageURLs returns up to MaxReferenceImages item photos in top, bottom, accessory order.
func (s Selection) ImageURLs() []string {
	urls := []string{}
	for _, sl := range s.slots() {
		if sl.item == nil || strings.TrimSpace(sl.item.ImageURL) == "" {
			continue
		}
		urls = append(urls, sl.item.ImageURL)
		if len(urls) == MaxReferenceImages {
			break
		}
	}
	return urls
}

func (s Selection) Meta() ItemMetaSet {
	meta := func(item *ItemDescriptor) *ItemMeta {
		if item == nil {
			return nil
		}
		return &ItemMeta{ID: item.ID, Color: item.Color, Brand: item.Brand}
	}
	return ItemMetaSet{
		Top:       meta(s.Top),
		Bottom:    meta(s.Bottom),
		Accessory: meta(s.Accessory),
	}
}
