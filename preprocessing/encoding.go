package preprocessing

// CategoryEncoding は学習時に観測したカテゴリ値の一覧（初出順）と索引を保持する。
// 生成後は変更されない。
type CategoryEncoding struct {
	categories []string
	index      map[string]int
}

// NewCategoryEncoding は values から重複と空文字を除いたカテゴリ一覧を初出順で作る
func NewCategoryEncoding(values []string) *CategoryEncoding {
	c := &CategoryEncoding{index: make(map[string]int)}
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := c.index[v]; ok {
			continue
		}
		c.index[v] = len(c.categories)
		c.categories = append(c.categories, v)
	}
	return c
}

// Len はカテゴリ数（one-hotブロックの幅）を返す
func (c *CategoryEncoding) Len() int {
	return len(c.categories)
}

// Index はカテゴリのブロック内位置を返す。未知の値なら false。
func (c *CategoryEncoding) Index(value string) (int, bool) {
	i, ok := c.index[value]
	return i, ok
}

// Categories はカテゴリ一覧のコピーを返す
func (c *CategoryEncoding) Categories() []string {
	return append([]string(nil), c.categories...)
}

// encodeInto は dst（幅 Len()）に one-hot を書き込む。未知の値ならゼロのまま。
func (c *CategoryEncoding) encodeInto(dst []float64, value string) bool {
	i, ok := c.index[value]
	if ok {
		dst[i] = 1
	}
	return ok
}
