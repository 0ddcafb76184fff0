package searcher

// Values of a resolved position from the machine's point of view.

const Win = 1.0
const Loss = -1.0
const Draw = 0.0
